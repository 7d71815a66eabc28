package entity

import (
	"github.com/joseph-ayodele/bills-extractor/internal/geometry"
)

// Fragment is one OCR-detected text run.
type Fragment struct {
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Box        geometry.Box `json:"box"`
	Page       int          `json:"page"`
}

// ItemBlock is a reconstructed table row split at the date-column anchor.
type ItemBlock struct {
	Text        string   `json:"text"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
	Page        int      `json:"page"`
	Y           float64  `json:"y"`
}

// OCRResult is what a fragment source hands to the bill extractor.
// ItemBlocks may be empty, in which case extraction walks Lines directly.
type OCRResult struct {
	RawText    string      `json:"raw_text"`
	Pages      int         `json:"pages"`
	Lines      []Fragment  `json:"lines"`
	ItemBlocks []ItemBlock `json:"item_blocks,omitempty"`
	Method     string      `json:"method,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}
