package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/geometry"
)

// TesseractEngine shells out to the tesseract CLI in TSV mode.
type TesseractEngine struct {
	cfg    Config
	runner Runner
}

func NewTesseractEngine(cfg Config, runner Runner) *TesseractEngine {
	return &TesseractEngine{cfg: cfg.withDefaults(), runner: runner}
}

func (t *TesseractEngine) Name() string { return EngineTesseract }

func (t *TesseractEngine) Recognize(ctx context.Context, imagePath string, page int) ([]entity.Fragment, error) {
	args := []string{imagePath, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	// tesseract <file> stdout -l <lang> [--psm N] tsv
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return parseTSV(string(out), page, t.cfg.GapFactor), nil
}

type tsvWord struct {
	text                     string
	left, top, width, height float64
	conf                     float64
}

func (w tsvWord) right() float64 { return w.left + w.width }

type tsvLineKey struct {
	page, block, par, line int
}

// parseTSV turns word rows into phrase fragments. Words on the same tesseract
// line are joined unless the gap between them exceeds gapFactor * line height,
// which keeps table columns apart.
func parseTSV(tsv string, page int, gapFactor float64) []entity.Fragment {
	if gapFactor <= 0 {
		gapFactor = defaultGapFactor
	}
	var order []tsvLineKey
	lines := map[tsvLineKey][]tsvWord{}

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		nums := make([]int, 10)
		ok := true
		for j := 1; j <= 9; j++ {
			v, err := strconv.Atoi(cols[j])
			if err != nil {
				ok = false
				break
			}
			nums[j] = v
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if !ok || err != nil {
			continue
		}
		key := tsvLineKey{page: nums[1], block: nums[2], par: nums[3], line: nums[4]}
		if _, seen := lines[key]; !seen {
			order = append(order, key)
		}
		lines[key] = append(lines[key], tsvWord{
			text:   text,
			left:   float64(nums[6]),
			top:    float64(nums[7]),
			width:  float64(nums[8]),
			height: float64(nums[9]),
			conf:   conf,
		})
	}

	var out []entity.Fragment
	for _, key := range order {
		words := lines[key]
		var lineHeight float64
		for _, w := range words {
			if w.height > lineHeight {
				lineHeight = w.height
			}
		}
		start := 0
		for i := 1; i <= len(words); i++ {
			if i < len(words) && words[i].left-words[i-1].right() <= gapFactor*lineHeight {
				continue
			}
			out = append(out, phrase(words[start:i], page))
			start = i
		}
	}
	return out
}

func phrase(words []tsvWord, page int) entity.Fragment {
	texts := make([]string, len(words))
	left, top := words[0].left, words[0].top
	right, bottom := words[0].right(), words[0].top+words[0].height
	var confSum float64
	var confN int
	for i, w := range words {
		texts[i] = w.text
		if w.left < left {
			left = w.left
		}
		if w.top < top {
			top = w.top
		}
		if w.right() > right {
			right = w.right()
		}
		if b := w.top + w.height; b > bottom {
			bottom = b
		}
		if w.conf >= 0 {
			confSum += w.conf
			confN++
		}
	}
	conf := 0.0
	if confN > 0 {
		conf = confSum / float64(confN) / 100
	}
	if conf > 1 {
		conf = 1
	}
	return entity.Fragment{
		Text:       strings.Join(texts, " "),
		Confidence: conf,
		Box:        geometry.RectBox(left, top, right-left, bottom-top),
		Page:       page,
	}
}
