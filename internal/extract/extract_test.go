package extract

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/geometry"
	"github.com/joseph-ayodele/bills-extractor/internal/layout"
)

type stubSource struct {
	res entity.OCRResult
	err error
}

func (s stubSource) Extract(context.Context, string) (entity.OCRResult, error) { return s.res, s.err }

func frag(text string, x, y float64, page int) entity.Fragment {
	return entity.Fragment{Text: text, Confidence: 0.9, Box: geometry.RectBox(x, y, 60, 10), Page: page}
}

func tableFragments() []entity.Fragment {
	return []entity.Fragment{
		frag("MEDICINES", 10, 80, 0),
		frag("Paracetamol 500mg", 10, 100, 0),
		frag("12/03/2024", 300, 101, 0),
		frag("45.00", 420, 100, 0),
		frag("CBC", 10, 130, 0),
		frag("350.00", 420, 131, 0),
	}
}

func TestOCRAdapterBuildsItemBlocks(t *testing.T) {
	src := stubSource{res: entity.OCRResult{Pages: 1, Lines: tableFragments()}}
	a := NewOCRAdapter(src, layout.NewClusterer(layout.DefaultConfig()), nil)

	res, err := a.Extract(context.Background(), "bill.pdf")
	require.NoError(t, err)
	require.Len(t, res.ItemBlocks, 2)

	assert.Equal(t, "Paracetamol 500mg", res.ItemBlocks[0].Description)
	assert.Equal(t, []string{"12/03/2024", "45.00"}, res.ItemBlocks[0].Columns)
	assert.Equal(t, "CBC", res.ItemBlocks[1].Description)
	assert.Equal(t, []string{"350.00"}, res.ItemBlocks[1].Columns)
	assert.Len(t, res.Lines, 6)
}

func TestOCRAdapterPropagatesError(t *testing.T) {
	a := NewOCRAdapter(stubSource{err: errors.New("pdftoppm missing")}, nil, nil)
	_, err := a.Extract(context.Background(), "bill.pdf")
	assert.EqualError(t, err, "pdftoppm missing")
}

func TestDumpRoundTrip(t *testing.T) {
	for _, name := range []string{"ocr.json", "ocr.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			in := entity.OCRResult{RawText: "MEDICINES", Pages: 1, Lines: tableFragments(), Method: "pdf-ocr/tesseract"}
			require.NoError(t, WriteDump(path, in))

			res, err := NewDumpSource(layout.NewClusterer(layout.DefaultConfig())).Extract(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, in.RawText, res.RawText)
			assert.Equal(t, in.Method, res.Method)
			require.Len(t, res.Lines, 6)
			assert.Equal(t, 101.0, res.Lines[2].Box.Top())
			assert.Len(t, res.ItemBlocks, 2)
		})
	}
}

func TestDumpSourceKeepsStoredBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocr.json")
	in := entity.OCRResult{Lines: tableFragments(), ItemBlocks: []entity.ItemBlock{{Text: "x 1.00", Description: "x", Columns: []string{"1.00"}}}}
	require.NoError(t, WriteDump(path, in))

	res, err := NewDumpSource(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, in.ItemBlocks, res.ItemBlocks)
}

func TestDumpSourceErrors(t *testing.T) {
	_, err := NewDumpSource(nil).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewDumpSource(nil).Extract(ctx, "whatever.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsDumpPath(t *testing.T) {
	assert.True(t, IsDumpPath("a/OCR.JSON"))
	assert.True(t, IsDumpPath("a/ocr.json.gz"))
	assert.False(t, IsDumpPath("a/bill.pdf"))
}
