package ocr

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// Preprocessor enhances a page image before recognition.
type Preprocessor struct {
	Contrast   float64
	Sharpen    float64
	Brightness float64
	Gamma      float64
	MaxSide    int // 0 = keep size
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{Contrast: 30, Sharpen: 1.5, Brightness: 10, Gamma: 1.2, MaxSide: 4000}
}

// Process writes the enhanced image to dst and returns dst.
func (p *Preprocessor) Process(src, dst string) (string, error) {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}

	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, p.Contrast)
	out = imaging.Sharpen(out, p.Sharpen)
	out = imaging.AdjustBrightness(out, p.Brightness)
	out = imaging.AdjustGamma(out, p.Gamma)

	b := out.Bounds()
	if p.MaxSide > 0 && (b.Dx() > p.MaxSide || b.Dy() > p.MaxSide) {
		out = imaging.Fit(out, p.MaxSide, p.MaxSide, imaging.Lanczos)
	}

	if err := imaging.Save(out, dst); err != nil {
		return "", fmt.Errorf("failed to save processed image: %w", err)
	}
	return dst, nil
}
