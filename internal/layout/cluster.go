// Package layout rebuilds table rows from independently detected OCR fragments.
//
// Rows are found with a single greedy sweep over fragments sorted by top-y: a
// fragment joins the current row when it lies within RowThreshold of the
// fragment added just before it. The comparison is against the previous
// fragment, not a row centroid, so a long run of closely spaced fragments can
// drift downward into one row. Dense pages may merge adjacent rows this way.
//
// Each row is then split at a single document-wide x anchor, the left edge of
// the date column, into a description zone and a numeric-columns zone.
package layout

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

const (
	// DefaultRowHeightFactor scales the mean fragment height into the row threshold.
	DefaultRowHeightFactor = 0.8
	// DefaultFallbackRowThreshold applies when no fragment carries height.
	DefaultFallbackRowThreshold = 15.0
	// DefaultDateAnchorX is the date-column left edge assumed when no date token is seen.
	DefaultDateAnchorX = 250.0

	dateTokenLen = 10
)

// Config tunes the clusterer. Zero fields take the defaults above.
type Config struct {
	RowHeightFactor      float64
	FallbackRowThreshold float64
	DefaultDateAnchorX   float64
}

// DefaultConfig returns the constants tuned for the standard hospital bill layout.
func DefaultConfig() Config {
	return Config{
		RowHeightFactor:      DefaultRowHeightFactor,
		FallbackRowThreshold: DefaultFallbackRowThreshold,
		DefaultDateAnchorX:   DefaultDateAnchorX,
	}
}

// Row is a set of fragments judged to share a visual line, in sweep order.
type Row []entity.Fragment

// Clusterer groups fragments into rows and item blocks. It holds no per-document state.
type Clusterer struct {
	cfg Config
}

func NewClusterer(cfg Config) *Clusterer {
	def := DefaultConfig()
	if cfg.RowHeightFactor <= 0 {
		cfg.RowHeightFactor = def.RowHeightFactor
	}
	if cfg.FallbackRowThreshold <= 0 {
		cfg.FallbackRowThreshold = def.FallbackRowThreshold
	}
	if cfg.DefaultDateAnchorX <= 0 {
		cfg.DefaultDateAnchorX = def.DefaultDateAnchorX
	}
	return &Clusterer{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Clusterer) Config() Config { return c.cfg }

// RowThreshold is mean(height) * factor, or the fallback when the mean is zero.
func (c *Clusterer) RowThreshold(frags []entity.Fragment) float64 {
	if len(frags) == 0 {
		return c.cfg.FallbackRowThreshold
	}
	var sum float64
	for _, f := range frags {
		sum += f.Box.Height()
	}
	avg := sum / float64(len(frags))
	if avg <= 0 {
		return c.cfg.FallbackRowThreshold
	}
	return avg * c.cfg.RowHeightFactor
}

// Rows partitions fragments by vertical proximity. Pages are not a clustering key.
func (c *Clusterer) Rows(frags []entity.Fragment) []Row {
	if len(frags) == 0 {
		return nil
	}
	threshold := c.RowThreshold(frags)

	sorted := make([]entity.Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.Top() < sorted[j].Box.Top()
	})

	var rows []Row
	current := Row{sorted[0]}
	lastY := sorted[0].Box.Top()
	for _, f := range sorted[1:] {
		y := f.Box.Top()
		if y-lastY <= threshold {
			current = append(current, f)
		} else {
			rows = append(rows, current)
			current = Row{f}
		}
		lastY = y
	}
	rows = append(rows, current)
	return rows
}

// DateAnchor is the smallest left-x among date-shaped tokens, or the configured default.
func (c *Clusterer) DateAnchor(frags []entity.Fragment) float64 {
	anchor := 0.0
	found := false
	for _, f := range frags {
		if !looksLikeDate(f.Text) {
			continue
		}
		x := f.Box.Left()
		if !found || x < anchor {
			anchor = x
			found = true
		}
	}
	if !found {
		return c.cfg.DefaultDateAnchorX
	}
	return anchor
}

func looksLikeDate(text string) bool {
	t := strings.TrimSpace(text)
	if utf8.RuneCountInString(t) != dateTokenLen {
		return false
	}
	return strings.ContainsAny(t, "-/")
}

// Blocks clusters fragments and keeps rows that have both a description and columns.
func (c *Clusterer) Blocks(frags []entity.Fragment) []entity.ItemBlock {
	rows := c.Rows(frags)
	if len(rows) == 0 {
		return nil
	}
	anchor := c.DateAnchor(frags)

	var blocks []entity.ItemBlock
	for _, row := range rows {
		if b, ok := splitRow(row, anchor); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func splitRow(row Row, anchor float64) (entity.ItemBlock, bool) {
	first := row[0]

	byX := make(Row, len(row))
	copy(byX, row)
	sort.SliceStable(byX, func(i, j int) bool {
		return byX[i].Box.Left() < byX[j].Box.Left()
	})

	var desc, cols, all []string
	for _, f := range byX {
		all = append(all, f.Text)
		if f.Box.Left() < anchor {
			desc = append(desc, f.Text)
		} else {
			cols = append(cols, f.Text)
		}
	}
	if len(desc) == 0 || len(cols) == 0 {
		return entity.ItemBlock{}, false
	}
	return entity.ItemBlock{
		Text:        strings.Join(all, " "),
		Description: strings.Join(desc, " "),
		Columns:     cols,
		Page:        first.Page,
		Y:           first.Box.Top(),
	}, true
}
