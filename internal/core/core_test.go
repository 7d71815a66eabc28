package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/extract"
	"github.com/joseph-ayodele/bills-extractor/internal/geometry"
	"github.com/joseph-ayodele/bills-extractor/internal/pipeline"
)

func testConfig() *common.Config {
	return &common.Config{
		OCR:        common.OCRConfig{Engine: "tesseract", ArtifactCacheDir: os.TempDir()},
		Extraction: common.ExtractionConfig{RowHeightFactor: 0.8, FallbackRowThreshold: 15, DateAnchorX: 250, ValidateSchema: true},
	}
}

func TestNewStagesRejectsIncompleteAzureConfig(t *testing.T) {
	cfg := testConfig()
	cfg.OCR.Engine = "azure"
	_, err := NewStages(cfg, nil, nil)
	assert.Error(t, err)

	cfg.OCR.Engine = "tesseract"
	st, err := NewStages(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, st.Clusterer.Config().RowHeightFactor)
}

func TestReplayProcessorReadsDump(t *testing.T) {
	frag := func(text string, y float64) entity.Fragment {
		return entity.Fragment{Text: text, Confidence: 0.9, Box: geometry.RectBox(10, y, 300, 12)}
	}
	res := entity.OCRResult{
		Pages: 1,
		Lines: []entity.Fragment{
			frag("Patient Name: John Doe", 20),
			frag("MEDICINES", 60),
			frag("Paracetamol 500mg 45.00", 80),
		},
	}
	path := filepath.Join(t.TempDir(), "bill.json.gz")
	require.NoError(t, extract.WriteDump(path, res))

	proc := NewReplayProcessor(testConfig(), nil, nil)
	doc, err := proc.ProcessFile(context.Background(), pipeline.Request{Path: path, UploadID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "John Doe", doc.Patient.Name)
	assert.Len(t, doc.Items[constants.Medicines], 1)
	assert.Equal(t, "bill.json.gz", doc.SourcePDF)
}
