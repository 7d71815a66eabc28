package billing

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

// Field names a lockable header field.
type Field string

const (
	FieldPatientName Field = "patient_name"
	FieldPatientMRN  Field = "patient_mrn"
	FieldBillNumber  Field = "bill_number"
	FieldBillingDate Field = "billing_date"
)

// headerFields fixes discovery order; only the first matching label per field and line is used.
var headerFields = []Field{FieldPatientName, FieldPatientMRN, FieldBillNumber, FieldBillingDate}

type labelPattern struct {
	label *regexp.Regexp // matched against the lowercased line
	value *regexp.Regexp // captures the text after the label, case-insensitive
}

func newLabel(pat string) labelPattern {
	return labelPattern{
		label: regexp.MustCompile(pat),
		value: regexp.MustCompile(`(?i)` + pat + `\s*(.+)`),
	}
}

var labelPatterns = map[Field][]labelPattern{
	FieldPatientName: {
		newLabel(`patient\s*name\s*[:.]?`),
		newLabel(`^name\s*[:.]?`),
	},
	FieldPatientMRN: {
		newLabel(`patient\s*mrn\s*[:.]?`),
		newLabel(`mrn\s*[:.]?`),
		newLabel(`uhid\s*[:.]?`),
	},
	FieldBillNumber: {
		newLabel(`bill\s*no\s*[:.]?`),
		newLabel(`bill\s*number\s*[:.]?`),
		newLabel(`invoice\s*no\s*[:.]?`),
	},
	FieldBillingDate: {
		newLabel(`billing\s*date\s*[:.]?`),
		newLabel(`bill\s*date\s*[:.]?`),
	},
}

var reLeadingPunct = regexp.MustCompile(`^[:.]\s*`)

// Candidate is one possible value for a header field.
type Candidate struct {
	Field Field
	Value string
	Score float64
	Page  int
}

// FieldRules validates one field's candidate values.
type FieldRules struct {
	MinLen  int
	MaxLen  int
	Invalid []*regexp.Regexp
	Valid   []*regexp.Regexp
}

// Rules maps each field to its validation rules. Fields without rules accept any non-blank value.
type Rules map[Field]FieldRules

func ci(pats ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(pats))
	for i, p := range pats {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// DefaultRules returns the built-in header validators.
func DefaultRules() Rules {
	return Rules{
		FieldPatientName: {
			MinLen:  3,
			MaxLen:  100,
			Invalid: ci(`^[A-Z]{2}\d{6,}`, `^\d{10,}$`),
			Valid:   ci(`[A-Za-z]{2,}`),
		},
		FieldPatientMRN: {
			MinLen: 5,
			MaxLen: 20,
			Valid:  ci(`\d{5,}`),
		},
		FieldBillingDate: {
			MinLen: 8,
			MaxLen: 30,
			Valid:  ci(`\d{2}[-/]\d{2}[-/]\d{4}`, `\d{4}[-/]\d{2}[-/]\d{2}`),
		},
		FieldBillNumber: {
			MinLen: 5,
			MaxLen: 40,
			Valid:  ci(`[A-Z]{2,}\d+`, `\d+[A-Z]+\d+`),
		},
	}
}

// Validate reports whether value is acceptable for field.
func (r Rules) Validate(field Field, value string) bool {
	value = strings.TrimSpace(value)
	fr, ok := r[field]
	rules := []common.ValidationRule{common.Required}
	if ok {
		if fr.MinLen > 0 {
			rules = append(rules, common.MinLength(fr.MinLen))
		}
		if fr.MaxLen > 0 {
			rules = append(rules, common.MaxLength(fr.MaxLen))
		}
		rules = append(rules, common.MatchesNone(fr.Invalid...), common.MatchesAny(fr.Valid...))
	}
	return !common.NewValidator().Field(string(field), value, rules...).HasErrors()
}

// FindCandidates scans ordered lines for labelled header values.
// For each line and field only the first matching label contributes.
func FindCandidates(lines []entity.Fragment) []Candidate {
	var out []Candidate
	for _, ln := range lines {
		text := strings.TrimSpace(ln.Text)
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)
		for _, field := range headerFields {
			for _, lp := range labelPatterns[field] {
				if !lp.label.MatchString(lower) {
					continue
				}
				if m := lp.value.FindStringSubmatch(text); m != nil {
					v := strings.TrimSpace(reLeadingPunct.ReplaceAllString(strings.TrimSpace(m[1]), ""))
					out = append(out, Candidate{Field: field, Value: v, Score: ln.Confidence, Page: ln.Page})
				}
				break
			}
		}
	}
	return out
}

// HeaderState is the set-once lock table threaded through aggregation.
// Offer never mutates the receiver.
type HeaderState struct {
	locked map[Field]Candidate
}

// Offer returns the state after seeing c. An invalid candidate is ignored.
// A valid candidate locks an empty field, and replaces a locked value only
// when that value no longer passes rules.
func (s HeaderState) Offer(c Candidate, rules Rules) HeaderState {
	if !rules.Validate(c.Field, c.Value) {
		return s
	}
	if cur, ok := s.locked[c.Field]; ok && rules.Validate(cur.Field, cur.Value) {
		return s
	}
	next := make(map[Field]Candidate, len(s.locked)+1)
	for k, v := range s.locked {
		next[k] = v
	}
	c.Value = strings.TrimSpace(c.Value)
	next[c.Field] = c
	return HeaderState{locked: next}
}

// Get returns the locked candidate for field.
func (s HeaderState) Get(field Field) (Candidate, bool) {
	c, ok := s.locked[field]
	return c, ok
}

// Locked returns the field to value snapshot for fields that locked.
func (s HeaderState) Locked() map[Field]string {
	out := make(map[Field]string, len(s.locked))
	for k, v := range s.locked {
		out[k] = v.Value
	}
	return out
}

// HeaderResult is the outcome of aggregating every candidate of one document.
type HeaderResult struct {
	State       HeaderState
	BillNumbers []string
}

// AggregateHeader folds candidates in order and collects every valid bill number.
func AggregateHeader(cands []Candidate, rules Rules) HeaderResult {
	var state HeaderState
	var billNumbers []string
	seen := map[string]struct{}{}
	for _, c := range cands {
		state = state.Offer(c, rules)
		if c.Field == FieldBillNumber && rules.Validate(c.Field, c.Value) {
			v := strings.TrimSpace(c.Value)
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				billNumbers = append(billNumbers, v)
			}
		}
	}
	if primary, ok := state.Get(FieldBillNumber); ok {
		if _, present := seen[primary.Value]; !present {
			billNumbers = append([]string{primary.Value}, billNumbers...)
		}
	}
	if billNumbers == nil {
		billNumbers = []string{}
	}
	return HeaderResult{State: state, BillNumbers: billNumbers}
}
