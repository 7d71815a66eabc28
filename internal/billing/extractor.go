package billing

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

// Extractor turns one document's OCR output into a BillDocument.
// It keeps no state between calls and is safe for concurrent use.
type Extractor struct {
	rules  Rules
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRules replaces the header validation rules.
func WithRules(r Rules) Option {
	return func(e *Extractor) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithClock fixes the extraction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{rules: DefaultRules(), now: time.Now, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract runs header locking, section tracking, payment routing and item assembly.
// The only error is ErrPaymentLeak.
func (e *Extractor) Extract(res entity.OCRResult) (*entity.BillDocument, error) {
	lines := res.Lines
	if len(lines) == 0 && strings.TrimSpace(res.RawText) != "" {
		lines = linesFromRawText(res.RawText)
	}
	ordered := orderLines(lines)

	header := AggregateHeader(FindCandidates(ordered), e.rules)
	tracker := NewSectionTracker(ordered)

	acc := newAccumulator()
	if len(res.ItemBlocks) > 0 {
		e.assembleBlocks(acc, res.ItemBlocks, tracker)
	} else {
		e.assembleLines(acc, ordered)
	}

	doc := entity.NewBillDocument()
	doc.ExtractionDate = e.now().UTC()
	for _, it := range acc.items {
		doc.Items[it.Category] = append(doc.Items[it.Category], it)
	}
	doc.Payments = append(doc.Payments, acc.payments...)

	if err := CheckPaymentLeak(doc.AllItems()); err != nil {
		e.logger.Error("payment reference leaked into line items", "error", err)
		return nil, err
	}

	fillHeader(doc, header, ordered)
	computeTotals(doc)

	doc.PageCount = pageCount(res.Pages, lines)
	doc.ExtractionConfidence = meanConfidence(lines)
	if raw := rawExcerpt(res.RawText, lines); raw != "" {
		doc.RawOCRText = &raw
	}
	switch {
	case len(lines) == 0:
		doc.Status = constants.BillStatusEmpty
	case len(acc.items) == 0 && len(acc.payments) == 0:
		doc.Status = constants.BillStatusNoItems
	default:
		doc.Status = constants.BillStatusComplete
	}

	e.logger.Debug("bill.extract.ok",
		"lines", len(lines),
		"blocks", len(res.ItemBlocks),
		"items", len(acc.items),
		"payments", len(acc.payments),
		"sections", len(tracker.events),
		"grand_total", doc.GrandTotal,
	)
	return doc, nil
}

func (e *Extractor) assembleBlocks(acc *accumulator, blocks []entity.ItemBlock, tracker *SectionTracker) {
	for _, b := range blocks {
		text := NormalizeSpace(b.Text)
		if text == "" {
			continue
		}
		desc := NormalizeSpace(b.Description)
		if desc == "" {
			desc = text
		}

		if IsPayment(text) || IsPayment(desc) {
			acc.addPayment(newPaymentEvent(desc, text, b.Page))
			continue
		}
		if isHeaderLabelLine(desc) {
			continue
		}

		amount, ok := BlockAmount(b.Columns, text)
		if !ok || Round2(amount) <= 0 {
			continue
		}
		sec, has := tracker.SectionAt(b.Page, b.Y)
		acc.addItem(newLineItem(desc, amount, ResolveCategory(sec, has, desc), b.Page, sectionRaw(sec, has)))
	}
}

func (e *Extractor) assembleLines(acc *accumulator, ordered []entity.Fragment) {
	var current constants.Category
	has := false
	for _, ln := range ordered {
		text := NormalizeSpace(ln.Text)
		if text == "" {
			continue
		}
		if sec, ok := DetectSectionHeader(text); ok {
			current, has = sec, true
			continue
		}
		if IsPayment(text) {
			acc.addPayment(newPaymentEvent(text, text, ln.Page))
			continue
		}
		if isHeaderLabelLine(text) {
			continue
		}
		amount, ok := ParseAmount(text)
		if !ok || Round2(amount) <= 0 {
			continue
		}
		acc.addItem(newLineItem(text, amount, ResolveCategory(current, has, text), ln.Page, sectionRaw(current, has)))
	}
}

func sectionRaw(sec constants.Category, has bool) *string {
	if !has {
		return nil
	}
	s := string(sec)
	return &s
}

// accumulator keeps first-seen order and drops repeated identifiers.
type accumulator struct {
	items      []entity.LineItem
	payments   []entity.PaymentEvent
	itemIDs    map[string]struct{}
	paymentIDs map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{itemIDs: map[string]struct{}{}, paymentIDs: map[string]struct{}{}}
}

func (a *accumulator) addItem(it entity.LineItem) {
	if _, dup := a.itemIDs[it.ItemID]; dup {
		return
	}
	a.itemIDs[it.ItemID] = struct{}{}
	a.items = append(a.items, it)
}

func (a *accumulator) addPayment(p entity.PaymentEvent) {
	if _, dup := a.paymentIDs[p.PaymentID]; dup {
		return
	}
	a.paymentIDs[p.PaymentID] = struct{}{}
	a.payments = append(a.payments, p)
}

func isHeaderLabelLine(text string) bool {
	lower := strings.ToLower(text)
	for _, field := range headerFields {
		for _, lp := range labelPatterns[field] {
			if lp.label.MatchString(lower) {
				return true
			}
		}
	}
	return false
}

func linesFromRawText(raw string) []entity.Fragment {
	var out []entity.Fragment
	for _, ln := range strings.Split(raw, "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, entity.Fragment{Text: ln, Confidence: 1, Page: 0})
	}
	return out
}

func orderLines(lines []entity.Fragment) []entity.Fragment {
	out := make([]entity.Fragment, len(lines))
	copy(out, lines)
	sort.SliceStable(out, func(i, j int) bool {
		return eventLess(out[i].Page, out[i].Box.Top(), out[j].Page, out[j].Box.Top())
	})
	return out
}

var reHospitalName = regexp.MustCompile(`(?i)\b(hospital|clinic|medical\s+cent(re|er)|nursing\s+home|healthcare)\b`)
var reDigit = regexp.MustCompile(`\d`)

func detectHospitalName(ordered []entity.Fragment) (string, bool) {
	if len(ordered) == 0 {
		return "", false
	}
	firstPage := ordered[0].Page
	for _, ln := range ordered {
		if ln.Page != firstPage {
			break
		}
		text := NormalizeSpace(ln.Text)
		if text == "" || utf8.RuneCountInString(text) > maxSectionHeaderLen {
			continue
		}
		if reHospitalName.MatchString(text) && !reDigit.MatchString(text) && !isHeaderLabelLine(text) {
			return text, true
		}
	}
	return "", false
}

func fillHeader(doc *entity.BillDocument, header HeaderResult, ordered []entity.Fragment) {
	locked := header.State.Locked()
	if v, ok := locked[FieldBillNumber]; ok {
		doc.Header.PrimaryBillNumber = &v
	}
	doc.Header.BillNumbers = header.BillNumbers
	if v, ok := locked[FieldBillingDate]; ok {
		doc.Header.BillingDate = &v
	}
	if name, ok := detectHospitalName(ordered); ok {
		doc.Header.HospitalName = &name
	}
	if v, ok := locked[FieldPatientName]; ok {
		if name := CleanPatientName(v); name != "" {
			doc.Patient.Name = name
		}
	}
	if v, ok := locked[FieldPatientMRN]; ok {
		doc.Patient.MRN = &v
	}
}

func computeTotals(doc *entity.BillDocument) {
	var grand float64
	for _, c := range constants.AllCategories() {
		var sum float64
		for _, it := range doc.Items[c] {
			sum += it.Amount
		}
		doc.Subtotals[c] = Round2(sum)
		grand += doc.Subtotals[c]
	}
	doc.GrandTotal = Round2(grand)

	var paid float64
	for _, p := range doc.Payments {
		if p.Amount != nil {
			paid += *p.Amount
		}
	}
	doc.Summary = entity.BillSummary{
		GrossTotal:   doc.GrandTotal,
		AmountPaid:   Round2(paid),
		BalanceToPay: Round2(doc.GrandTotal - paid),
	}
}

func pageCount(pages int, lines []entity.Fragment) int {
	n := pages
	for _, ln := range lines {
		if ln.Page+1 > n {
			n = ln.Page + 1
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

func meanConfidence(lines []entity.Fragment) float64 {
	if len(lines) == 0 {
		return 0
	}
	var sum float64
	for _, ln := range lines {
		c := ln.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		sum += c
	}
	return sum / float64(len(lines))
}

// rawExcerpt caps the raw text at RawTextExcerptLimit runes. Without raw text
// the fragment texts are joined in input order.
func rawExcerpt(raw string, lines []entity.Fragment) string {
	if raw == "" && len(lines) > 0 {
		parts := make([]string, 0, len(lines))
		for _, ln := range lines {
			parts = append(parts, ln.Text)
		}
		raw = strings.Join(parts, "\n")
	}
	if raw == "" {
		return ""
	}
	if utf8.RuneCountInString(raw) <= constants.RawTextExcerptLimit {
		return raw
	}
	r := []rune(raw)
	return string(r[:constants.RawTextExcerptLimit])
}
