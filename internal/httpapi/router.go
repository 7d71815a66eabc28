package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/bills-extractor/internal/bills"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

type Handler struct {
	svc       *bills.Service
	uploadDir string
	health    HealthFunc
	logger    *slog.Logger
}

func NewHandler(svc *bills.Service, uploadDir string, health HealthFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, uploadDir: uploadDir, health: health, logger: logger}
}

// Router builds the gin engine. Callers pick the gin mode before calling it.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestID(), h.accessLog())

	r.GET("/healthz", h.healthz)
	r.GET("/stats", h.stats)
	r.GET("/bills", h.findBills)
	r.POST("/bills", h.upload)
	r.GET("/bills/:upload_id", h.getBill)
	r.GET("/bills/:upload_id/export.xlsx", h.exportBill)
	return r
}

func (h *Handler) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header("X-Request-ID", rid)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getBill(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("upload_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) findBills(c *gin.Context) {
	docs, err := h.svc.Find(c.Request.Context(), bills.FindRequest{MRN: c.Query("mrn"), Name: c.Query("name")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": docs, "count": len(docs)})
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) exportBill(c *gin.Context) {
	id := c.Param("upload_id")
	b, err := h.svc.Export(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+id+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, b)
}

// upload stores the multipart "file" under its own directory so the original base name survives as source_pdf.
func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("create upload dir failed", "dir", h.uploadDir, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload"})
		return
	}
	dir, err := os.MkdirTemp(h.uploadDir, "upload-*")
	if err != nil {
		h.logger.Error("create upload slot failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload"})
		return
	}
	dst := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		h.logger.Error("save upload failed", "path", dst, "error", err)
		_ = os.RemoveAll(dir)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload"})
		return
	}

	res, err := h.svc.IngestFile(c.Request.Context(), dst)
	if err != nil {
		_ = os.RemoveAll(dir)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func writeError(c *gin.Context, err error) {
	st := status.Convert(err)
	c.JSON(httpStatus(st.Code()), gin.H{"error": st.Message(), "code": st.Code().String()})
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
