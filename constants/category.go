package constants

import (
	"strings"
)

// Category is one of the fixed bill item categories. Values are stored as-is.
type Category string

const (
	Medicines             Category = "medicines"
	RegulatedPricingDrugs Category = "regulated_pricing_drugs"
	SurgicalConsumables   Category = "surgical_consumables"
	ImplantsDevices       Category = "implants_devices"
	DiagnosticsTests      Category = "diagnostics_tests"
	Radiology             Category = "radiology"
	Consultation          Category = "consultation"
	Hospitalization       Category = "hospitalization"
	Packages              Category = "packages"
	Administrative        Category = "administrative"
	Other                 Category = "other"
)

var allCategories = []Category{
	Medicines,
	RegulatedPricingDrugs,
	SurgicalConsumables,
	ImplantsDevices,
	DiagnosticsTests,
	Radiology,
	Consultation,
	Hospitalization,
	Packages,
	Administrative,
	Other,
}

// AllCategories returns a copy of the closed category set in display order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// IsKnown reports whether c is a member of the closed set.
func (c Category) IsKnown() bool {
	for _, cat := range allCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Canonicalize maps free-form input onto the closed set.
// Unknown values collapse to Other with ok=false.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	// synonyms map
	synonyms := map[string]Category{
		"medicine":        Medicines,
		"pharmacy":        Medicines,
		"drugs":           Medicines,
		"diagnostics":     DiagnosticsTests,
		"investigation":   DiagnosticsTests,
		"laboratory":      DiagnosticsTests,
		"tests":           DiagnosticsTests,
		"imaging":         Radiology,
		"consumables":     SurgicalConsumables,
		"implants":        ImplantsDevices,
		"room":            Hospitalization,
		"hospitalisation": Hospitalization,
		"package":         Packages,
		"admin":           Administrative,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}
