// Package pattern holds the ordered, regex based rule table that files
// normalized balance-sheet labels under the fixed category taxonomy.
package pattern

import "github.com/Veraticus/the-books-must-balance/internal/model"

// Classifier maps a normalized label to a category.
type Classifier interface {
	// Classify returns the first matching category, or model.Unknown.
	Classify(normalized string) model.CategoryName
	// Lookup returns the rule that matched, if any.
	Lookup(normalized string) (Match, bool)
}

// Extender is a Classifier whose rule table can grow at runtime.
type Extender interface {
	Classifier
	// AddPattern appends expr to the end of category's pattern list.
	AddPattern(category model.CategoryName, expr string) error
}

// Match describes the rule that classified a label.
type Match struct {
	Category model.CategoryName
	Pattern  string
	// Index is the position of the pattern within its category's list.
	Index int
}

// CategoryPatterns is one ordered entry of a seed: a category and its
// patterns in match order.
type CategoryPatterns struct {
	Category model.CategoryName `yaml:"category"`
	Patterns []string           `yaml:"patterns"`
}
