package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/async"
	"github.com/joseph-ayodele/bills-extractor/internal/bills"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type memReader struct {
	docs map[string]*entity.BillDocument
}

func (m *memReader) GetByUploadID(_ context.Context, id string) (*entity.BillDocument, error) {
	if d, ok := m.docs[id]; ok {
		return d, nil
	}
	return nil, common.NewAppError("BILL_NOT_FOUND", id, common.ErrNotFound)
}

func (m *memReader) ListByPatientMRN(context.Context, string) ([]*entity.BillDocument, error) {
	return nil, nil
}

func (m *memReader) ListByPatientName(_ context.Context, name string) ([]*entity.BillDocument, error) {
	var out []*entity.BillDocument
	for _, d := range m.docs {
		if d.Patient.Name == name {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memReader) Statistics(context.Context) (*entity.BillStatistics, error) {
	return &entity.BillStatistics{TotalBills: int64(len(m.docs)), CategoryTotals: map[constants.Category]float64{}}, nil
}

type memQueue struct{ jobs []async.Job }

func (q *memQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Shutdown(context.Context) {}

type stubExporter struct{}

func (stubExporter) BillXLSX(context.Context, string) ([]byte, error) { return []byte("PK\x03\x04"), nil }

func newRouter(t *testing.T, q *memQueue, health HealthFunc) (*gin.Engine, string) {
	t.Helper()
	doc := entity.NewBillDocument()
	doc.UploadID = "u-1"
	doc.Patient.Name = "Jane Roe"
	reader := &memReader{docs: map[string]*entity.BillDocument{"u-1": doc}}

	var queue async.Queue
	if q != nil {
		queue = q
	}
	dir := t.TempDir()
	svc := bills.NewService(reader, stubExporter{}, queue, nil)
	return NewHandler(svc, dir, health, nil).Router(), dir
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newRouter(t, nil, nil)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	r, _ = newRouter(t, nil, func(context.Context) error { return errors.New("db down") })
	w = serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetBill(t *testing.T) {
	r, _ := newRouter(t, nil, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/bills/u-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got entity.BillDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "u-1", got.UploadID)
	assert.Equal(t, "Jane Roe", got.Patient.Name)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/bills/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NotFound")
}

func TestFindBillsAndStats(t *testing.T) {
	r, _ := newRouter(t, nil, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/bills?name=Jane+Roe", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Bills []entity.BillDocument `json:"bills"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/bills", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_bills":1`)
}

func TestExportBill(t *testing.T) {
	r, _ := newRouter(t, nil, nil)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/bills/u-1/export.xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "u-1.xlsx")
}

func multipartBody(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadQueuesFile(t *testing.T) {
	q := &memQueue{}
	r, dir := newRouter(t, q, nil)

	body, ct := multipartBody(t, "march-bill.pdf", []byte("%PDF-1.4 test"))
	req := httptest.NewRequest(http.MethodPost, "/bills", body)
	req.Header.Set("Content-Type", ct)
	w := serve(r, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var res bills.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Queued)
	assert.NotEmpty(t, res.UploadID)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, "march-bill.pdf", filepath.Base(q.jobs[0].Path))
	assert.Equal(t, res.UploadID, q.jobs[0].UploadID)
	rel, err := filepath.Rel(dir, q.jobs[0].Path)
	require.NoError(t, err)
	assert.NotContains(t, rel, "..")
}

func TestUploadRejections(t *testing.T) {
	r, _ := newRouter(t, &memQueue{}, nil)

	w := serve(r, httptest.NewRequest(http.MethodPost, "/bills", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct := multipartBody(t, "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/bills", body)
	req.Header.Set("Content-Type", ct)
	w = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r, _ = newRouter(t, nil, nil)
	body, ct = multipartBody(t, "bill.pdf", []byte("%PDF"))
	req = httptest.NewRequest(http.MethodPost, "/bills", body)
	req.Header.Set("Content-Type", ct)
	w = serve(r, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
