package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

type Config struct {
	Engine    string // "tesseract" | "azure"; if empty -> "tesseract"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for PDFs, default 300
	MaxPages      int // 0 = no limit
	PSM           int // 6 treats the page as a uniform block of text
	OEM           int // 1 = LSTM; leave 0 to use default

	// GapFactor splits a tesseract line into separate fragments when the
	// horizontal gap between words exceeds GapFactor * line height.
	GapFactor float64

	Preprocess       bool
	ArtifactCacheDir string

	AzureEndpoint string
	AzureKey      string
}

const defaultGapFactor = 1.5

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = EngineTesseract
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.GapFactor <= 0 {
		c.GapFactor = defaultGapFactor
	}
	if c.ArtifactCacheDir == "" {
		c.ArtifactCacheDir = os.TempDir()
	}
	return c
}

type Extractor struct {
	cfg    Config
	runner Runner
	engine Engine
	pre    *Preprocessor
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithEngine replaces the engine selected by Config.Engine.
func WithEngine(en Engine) Option {
	return func(e *Extractor) { e.engine = en }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	e := &Extractor{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.runner == nil {
		e.runner = execRunner{logger: logger}
	}
	if e.engine == nil {
		en, err := NewEngine(cfg, e.runner, logger)
		if err != nil {
			return nil, err
		}
		e.engine = en
	}
	if cfg.Preprocess {
		e.pre = NewPreprocessor()
	}
	return e, nil
}

// Extract rasterizes the document when needed and runs the engine page by page.
// A page that fails is logged and skipped; the result is still returned.
func (e *Extractor) Extract(ctx context.Context, path string) (entity.OCRResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "engine", e.engine.Name(), "ext", ext)

	work, err := os.MkdirTemp(e.cfg.ArtifactCacheDir, "bills-ocr-*")
	if err != nil {
		return entity.OCRResult{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(work); err != nil {
			e.logger.Warn("failed to remove ocr work dir", "dir", work, "error", err)
		}
	}()

	var pages []string
	var method string
	var warns []string
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		method = "pdf-ocr"
		pages, warns, err = e.rasterizePDF(ctx, path, work)
		if err != nil {
			e.logger.Error("pdf rasterization failed", "path", path, "error", err)
			return entity.OCRResult{Method: method, Warnings: warns}, err
		}
	case constants.IMAGE:
		method = "image-ocr"
		pages = []string{path}
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return entity.OCRResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}

	res := entity.OCRResult{
		Pages:  len(pages),
		Method: method + "/" + e.engine.Name(),
		Lines:  []entity.Fragment{},
	}
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		img := page
		if e.pre != nil {
			out, err := e.pre.Process(page, filepath.Join(work, fmt.Sprintf("pre-%03d.png", i+1)))
			if err != nil {
				warns = append(warns, fmt.Sprintf("page %d: preprocess: %v", i+1, err))
				e.logger.Warn("preprocess failed, using original image", "page", i+1, "error", err)
			} else {
				img = out
			}
		}
		frags, err := e.engine.Recognize(ctx, img, i)
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", i+1, err))
			e.logger.Warn("ocr page failed", "page", i+1, "engine", e.engine.Name(), "error", err)
			continue
		}
		for _, f := range frags {
			f.Text = strings.Join(strings.Fields(f.Text), " ")
			if f.Text == "" {
				continue
			}
			res.Lines = append(res.Lines, f)
		}
	}

	res.RawText = Normalize(joinPages(res.Lines))
	res.Confidence = blendConfidence(meanFragmentConfidence(res.Lines), heuristicConfidence(res.RawText))
	res.Warnings = warns

	e.logger.Info("ocr extraction done",
		"path", path,
		"pages", res.Pages,
		"fragments", len(res.Lines),
		"warnings", len(res.Warnings),
		"confidence", res.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// joinPages renders fragments as text lines with a form feed between pages.
func joinPages(frags []entity.Fragment) string {
	var b strings.Builder
	for i, f := range frags {
		if i > 0 {
			if f.Page != frags[i-1].Page {
				b.WriteString("\n\f\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(f.Text)
	}
	return b.String()
}
