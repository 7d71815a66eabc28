package ocr

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

var (
	reDate   = regexp.MustCompile(`\b\d{2}[-/]\d{2}[-/]\d{4}\b|\b\d{4}[-/]\d{2}[-/]\d{2}\b`)
	reCurr   = regexp.MustCompile(`\b(inr|rs\.?)\b|₹`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
	reBillID = regexp.MustCompile(`\b(bill|invoice|uhid|mrn)\b`)
)

func hasDatePattern(s string) bool     { return reDate.MatchString(s) }
func hasCurrencyPattern(s string) bool { return reCurr.MatchString(s) }
func hasAmountPattern(s string) bool   { return reAmount.MatchString(s) }

// heuristicConfidence scores decoded text by how bill-like it looks.
func heuristicConfidence(txt string) float64 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	txtL := strings.ToLower(txt)
	score := 0.2 // base
	if hasDatePattern(txtL) {
		score += 0.2
	}
	if hasCurrencyPattern(txtL) {
		score += 0.15
	}
	if hasAmountPattern(txtL) {
		score += 0.15
	}
	if reBillID.MatchString(txtL) {
		score += 0.1
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func meanFragmentConfidence(frags []entity.Fragment) float64 {
	if len(frags) == 0 {
		return 0
	}
	var sum float64
	for _, f := range frags {
		sum += f.Confidence
	}
	return sum / float64(len(frags))
}

// blendConfidence weights engine confidence higher when present.
func blendConfidence(engine, heur float64) float64 {
	var conf float64
	if engine > 0 {
		conf = 0.7*engine + 0.3*heur
	} else {
		conf = heur
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
