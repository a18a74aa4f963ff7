// Package model defines the core data structures for the balance application.
package model

// CategoryName identifies one of the fixed balance-sheet buckets a line item can
// be filed under.
type CategoryName string

// The closed balance-sheet taxonomy, plus the sentinel for unmatched labels.
const (
	CurrentAssets         CategoryName = "current_assets"
	NoncurrentAssets      CategoryName = "noncurrent_assets"
	CurrentLiabilities    CategoryName = "current_liabilities"
	NoncurrentLiabilities CategoryName = "noncurrent_liabilities"
	Equity                CategoryName = "equity"
	Totals                CategoryName = "totals"

	// Unknown is the result of a classification that matched no pattern.
	// It is a valid outcome, not an error.
	Unknown CategoryName = "unknown"
)

// SectionKind is the top-level balance-sheet section a category rolls up into.
type SectionKind string

const (
	// SectionAssets groups current and non-current assets.
	SectionAssets SectionKind = "Assets"
	// SectionLiabilities groups current and non-current liabilities.
	SectionLiabilities SectionKind = "Liabilities"
	// SectionEquity holds equity.
	SectionEquity SectionKind = "Equity"
	// SectionNone marks categories that do not aggregate (totals, unknown).
	SectionNone SectionKind = ""
)

var categoryOrder = []CategoryName{
	CurrentAssets,
	NoncurrentAssets,
	CurrentLiabilities,
	NoncurrentLiabilities,
	Equity,
	Totals,
}

var categoryTitles = map[CategoryName]string{
	CurrentAssets:         "Current Assets",
	NoncurrentAssets:      "Non-current Assets",
	CurrentLiabilities:    "Current Liabilities",
	NoncurrentLiabilities: "Non-current Liabilities",
	Equity:                "Equity",
	Totals:                "Totals",
	Unknown:               "Unknown",
}

// Categories returns the six taxonomy categories in their canonical order.
// The returned slice is a copy and may be modified by the caller.
func Categories() []CategoryName {
	out := make([]CategoryName, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory converts a string into a taxonomy category.
// It returns false for anything outside the six fixed names, including "unknown".
func ParseCategory(s string) (CategoryName, bool) {
	c := CategoryName(s)
	return c, c.IsValid()
}

// IsValid reports whether c is one of the six taxonomy categories.
func (c CategoryName) IsValid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// Title returns the human readable name used in menus and reports.
func (c CategoryName) Title() string {
	if title, ok := categoryTitles[c]; ok {
		return title
	}
	return string(c)
}

// Section returns the balance-sheet section the category aggregates into.
func (c CategoryName) Section() SectionKind {
	switch c {
	case CurrentAssets, NoncurrentAssets:
		return SectionAssets
	case CurrentLiabilities, NoncurrentLiabilities:
		return SectionLiabilities
	case Equity:
		return SectionEquity
	default:
		return SectionNone
	}
}

func (c CategoryName) String() string {
	return string(c)
}
