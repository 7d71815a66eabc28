package billing

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
)

const maxSectionHeaderLen = 80

var reTrailingAmount = regexp.MustCompile(`[\d,]+\.\d{2}$`)

type sectionKeywords struct {
	category constants.Category
	keywords []string
}

// sectionTable is scanned in order; the first category with a matching keyword wins.
var sectionTable = []sectionKeywords{
	{constants.Medicines, []string{"medicine", "medicines", "drug", "drugs", "pharmacy"}},
	{constants.DiagnosticsTests, []string{"diagnostic", "diagnostics", "investigation", "pathology", "laboratory", "lab", "non-lab", "non lab", "imaging"}},
	{constants.Radiology, []string{"radiology", "x-ray", "xray", "ct", "mri", "ultrasound", "usg"}},
	{constants.Consultation, []string{"consultation", "consult", "doctor fee", "physician"}},
	{constants.Hospitalization, []string{"hospitalisation", "hospitalization", "room", "ward", "bed", "icu", "nursing"}},
	{constants.Packages, []string{"package", "packages", "procedure package"}},
	{constants.Administrative, []string{"administrative", "registration", "processing", "documentation"}},
	{constants.ImplantsDevices, []string{"implant", "implants", "device", "devices", "stent", "pacemaker"}},
	{constants.SurgicalConsumables, []string{"consumable", "consumables", "surgical", "gloves", "syringe", "catheter"}},
}

// DetectSectionHeader reports the category a caption line introduces.
// Captions are short, carry no trailing 2-decimal amount and contain a section keyword.
func DetectSectionHeader(text string) (constants.Category, bool) {
	t := strings.TrimSpace(text)
	if t == "" || utf8.RuneCountInString(t) > maxSectionHeaderLen {
		return "", false
	}
	if reTrailingAmount.MatchString(t) {
		return "", false
	}
	lower := strings.ToLower(t)
	for _, row := range sectionTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.category, true
			}
		}
	}
	return "", false
}

// SectionEvent is a detected caption position.
type SectionEvent struct {
	Page    int
	Y       float64
	Section constants.Category
}

func eventLess(aPage int, aY float64, bPage int, bY float64) bool {
	if aPage != bPage {
		return aPage < bPage
	}
	return aY < bY
}

// SectionTracker answers which caption governs a given position.
type SectionTracker struct {
	events []SectionEvent
}

// NewSectionTracker detects captions among lines and orders them by (page, y).
// Equal positions keep their input order.
func NewSectionTracker(lines []entity.Fragment) *SectionTracker {
	var events []SectionEvent
	for _, ln := range lines {
		if sec, ok := DetectSectionHeader(ln.Text); ok {
			events = append(events, SectionEvent{Page: ln.Page, Y: ln.Box.Top(), Section: sec})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return eventLess(events[i].Page, events[i].Y, events[j].Page, events[j].Y)
	})
	return &SectionTracker{events: events}
}

// Events returns the ordered caption events.
func (t *SectionTracker) Events() []SectionEvent {
	out := make([]SectionEvent, len(t.events))
	copy(out, t.events)
	return out
}

// SectionAt returns the section of the rightmost event at or before (page, y).
// Among events at the same position the last one inserted wins.
func (t *SectionTracker) SectionAt(page int, y float64) (constants.Category, bool) {
	idx := sort.Search(len(t.events), func(i int) bool {
		e := t.events[i]
		return eventLess(page, y, e.Page, e.Y)
	})
	if idx == 0 {
		return "", false
	}
	return t.events[idx-1].Section, true
}
