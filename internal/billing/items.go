package billing

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

type keywordRule struct {
	category constants.Category
	pattern  *regexp.Regexp
}

// keywordFallback categorizes a description when no section caption governs it.
var keywordFallback = []keywordRule{
	{constants.Medicines, regexp.MustCompile(`(?i)\b(tablet|tab|capsule|cap|syrup|inj|injection)\b|\d+\s*mg\b`)},
	{constants.Radiology, regexp.MustCompile(`(?i)\b(x-ray|xray|scan|mri|ultrasound)\b`)},
	{constants.DiagnosticsTests, regexp.MustCompile(`(?i)\b(blood|test|culture|profile|panel)\b`)},
	{constants.Packages, regexp.MustCompile(`(?i)\b(surgery|procedure|operation)\b`)},
	{constants.Consultation, regexp.MustCompile(`(?i)\bconsultation\b`)},
	{constants.Hospitalization, regexp.MustCompile(`(?i)\b(room|ward)\b`)},
}

// CategorizeByKeyword returns the fallback category for a description, or Other.
func CategorizeByKeyword(desc string) constants.Category {
	for _, r := range keywordFallback {
		if r.pattern.MatchString(desc) {
			return r.category
		}
	}
	return constants.Other
}

// ResolveCategory applies section first, then the keyword fallback.
func ResolveCategory(section constants.Category, hasSection bool, desc string) constants.Category {
	if hasSection && section.IsKnown() {
		return section
	}
	return CategorizeByKeyword(desc)
}

// StableID hashes prefix and parts joined by "|".
func StableID(prefix string, parts ...string) string {
	h := sha1.New()
	h.Write([]byte(prefix))
	for _, p := range parts {
		h.Write([]byte("|"))
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ItemID is stable over (category, amount, description, page).
func ItemID(cat constants.Category, amount float64, desc string, page int) string {
	return StableID("item", string(cat), fmt.Sprintf("%.2f", amount), strings.ToLower(desc), fmt.Sprint(page))
}

// PaymentID is stable over (reference, amount, description, page).
func PaymentID(ref string, amount *float64, desc string, page int) string {
	amt := ""
	if amount != nil {
		amt = fmt.Sprintf("%.2f", *amount)
	}
	return StableID("payment", ref, amt, strings.ToLower(desc), fmt.Sprint(page))
}

var (
	reLeadingSerial = regexp.MustCompile(`^\[?\d+[.)\]]?\s+`)
	reMRNSuffix     = regexp.MustCompile(`\s*\(\d{6,}\)\s*$`)
)

// NormalizeSpace collapses runs of whitespace and trims.
func NormalizeSpace(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// CleanDescription drops a leading serial number and collapses whitespace.
func CleanDescription(s string) string {
	s = NormalizeSpace(s)
	if cleaned := NormalizeSpace(reLeadingSerial.ReplaceAllString(s, "")); cleaned != "" {
		return cleaned
	}
	return s
}

// CleanPatientName strips a trailing bracketed record number.
func CleanPatientName(s string) string {
	return NormalizeSpace(reMRNSuffix.ReplaceAllString(s, ""))
}

// newLineItem builds a sanitized item; the id is computed over the cleaned values.
func newLineItem(desc string, amount float64, cat constants.Category, page int, section *string) entity.LineItem {
	if c, ok := constants.Canonicalize(string(cat)); ok {
		cat = c
	} else {
		cat = constants.Other
	}
	desc = CleanDescription(desc)
	amount = Round2(amount)
	return entity.LineItem{
		ItemID:      ItemID(cat, amount, desc, page),
		Description: desc,
		Amount:      amount,
		Category:    cat,
		Page:        page,
		SectionRaw:  section,
	}
}

func newPaymentEvent(desc string, text string, page int) entity.PaymentEvent {
	desc = NormalizeSpace(desc)
	p := entity.PaymentEvent{Description: desc, Page: page}
	if v, ok := ParseAmount(text); ok {
		v = Round2(v)
		p.Amount = &v
	}
	ref := ""
	if r, ok := ExtractReference(text); ok {
		ref = r
		p.Reference = &ref
	}
	if m, ok := PaymentMode(text); ok {
		p.Mode = &m
	}
	p.PaymentID = PaymentID(ref, p.Amount, desc, page)
	return p
}
