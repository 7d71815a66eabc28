package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/layout"
)

// DumpSource replays OCR results saved as JSON (optionally .gz).
// When a dump carries no item blocks they are rebuilt from its lines.
type DumpSource struct {
	clusterer *layout.Clusterer
}

func NewDumpSource(clusterer *layout.Clusterer) *DumpSource {
	return &DumpSource{clusterer: clusterer}
}

func (d *DumpSource) Extract(ctx context.Context, path string) (entity.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return entity.OCRResult{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return entity.OCRResult{}, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	res, err := ReadDump(f, strings.HasSuffix(strings.ToLower(path), ".gz"))
	if err != nil {
		return entity.OCRResult{}, fmt.Errorf("read dump %s: %w", path, err)
	}
	if len(res.ItemBlocks) == 0 && d.clusterer != nil {
		res.ItemBlocks = d.clusterer.Blocks(res.Lines)
	}
	return res, nil
}

// IsDumpPath reports whether path names an OCR dump rather than a source document.
func IsDumpPath(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".json") || strings.HasSuffix(p, ".json.gz")
}

// ReadDump decodes one OCR result.
func ReadDump(r io.Reader, gzipped bool) (entity.OCRResult, error) {
	if gzipped {
		zr, err := pgzip.NewReader(r)
		if err != nil {
			return entity.OCRResult{}, err
		}
		defer zr.Close()
		r = zr
	}
	var res entity.OCRResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return entity.OCRResult{}, err
	}
	return res, nil
}

// WriteDump encodes res to path, gzip-compressed when path ends in .gz.
func WriteDump(path string, res entity.OCRResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zw := pgzip.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
