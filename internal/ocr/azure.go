package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/geometry"
)

// The printed-text API reports no per-line confidence.
const azureLineConfidence = 0.9

type printedTextRecognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, image io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// AzureEngine calls the Computer Vision printed-text endpoint.
type AzureEngine struct {
	client printedTextRecognizer
	logger *slog.Logger
}

func NewAzureEngine(endpoint, apiKey string, logger *slog.Logger) *AzureEngine {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return newAzureEngine(client, logger)
}

func newAzureEngine(client printedTextRecognizer, logger *slog.Logger) *AzureEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &AzureEngine{client: client, logger: logger}
}

func (a *AzureEngine) Name() string { return EngineAzure }

func (a *AzureEngine) Recognize(ctx context.Context, imagePath string, page int) ([]entity.Fragment, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	// the SDK closes the body
	result, err := a.client.RecognizePrintedTextInStream(ctx, true, f, computervision.OcrLanguages(computervision.En))
	if err != nil {
		return nil, fmt.Errorf("azure recognize: %w", err)
	}
	frags := fragmentsFromAzure(result, page)
	a.logger.Debug("azure page recognized", "page", page, "fragments", len(frags))
	return frags, nil
}

func fragmentsFromAzure(result computervision.OcrResult, page int) []entity.Fragment {
	var out []entity.Fragment
	if result.Regions == nil {
		return out
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var words []string
			for _, w := range *line.Words {
				if w.Text != nil && strings.TrimSpace(*w.Text) != "" {
					words = append(words, strings.TrimSpace(*w.Text))
				}
			}
			if len(words) == 0 {
				continue
			}
			out = append(out, entity.Fragment{
				Text:       strings.Join(words, " "),
				Confidence: azureLineConfidence,
				Box:        parseAzureBox(line.BoundingBox),
				Page:       page,
			})
		}
	}
	return out
}

// parseAzureBox reads "x,y,w,h". Anything else yields an absent box.
func parseAzureBox(s *string) geometry.Box {
	if s == nil {
		return geometry.Box{}
	}
	parts := strings.Split(*s, ",")
	if len(parts) != 4 {
		return geometry.Box{}
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Box{}
		}
		v[i] = n
	}
	return geometry.RectBox(v[0], v[1], v[2], v[3])
}
