package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
)

// rasterizePDF renders each page to dir as PNG and returns the files in page order.
func (e *Extractor) rasterizePDF(ctx context.Context, path, dir string) ([]string, []string, error) {
	prefix := filepath.Join(dir, "page")
	args := []string{"-r", fmt.Sprintf("%d", e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", fmt.Sprintf("%d", e.cfg.MaxPages))
	}
	args = append(args, path, prefix)

	// pdftoppm -r 300 -png [-l N] <in.pdf> <dir/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...)
	if err != nil {
		return nil, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// pdftoppm zero-pads page numbers to a fixed width, so a lexical sort is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}
	return matches, nil, nil
}
