package pattern

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

var (
	// ErrUnknownCategory is returned when a category outside the fixed
	// taxonomy is referenced.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidPattern is returned for an expression that does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrDuplicateCategory is returned when a seed lists a category twice.
	ErrDuplicateCategory = errors.New("category declared more than once")
)

// Rule is a compiled pattern filed under a category.
type Rule struct {
	re       *regexp.Regexp
	Category model.CategoryName
	Expr     string
}

// Matches reports whether the rule matches normalized starting at index 0.
func (r Rule) Matches(normalized string) bool {
	return normalized != "" && r.re.MatchString(normalized)
}

// RuleTable is an ordered mapping from category to an ordered list of
// patterns. Categories are tried in declared order and patterns in the order
// they were added; the first match wins. Patterns can only be appended.
//
// A RuleTable belongs to a single session and is not safe for concurrent use.
type RuleTable struct {
	rules map[model.CategoryName][]Rule
	order []model.CategoryName
	added []Rule
}

// NewRuleTable builds a table from an ordered seed. The seed's order fixes
// category precedence; taxonomy categories the seed leaves out are appended
// after it, in canonical order, with no patterns.
//
// Every seed pattern is compile-checked. On any error no table is returned.
func NewRuleTable(seed []CategoryPatterns) (*RuleTable, error) {
	t := &RuleTable{
		rules: make(map[model.CategoryName][]Rule, len(model.Categories())),
	}

	for _, entry := range seed {
		if !entry.Category.IsValid() {
			return nil, fmt.Errorf("seed category %q: %w", entry.Category, ErrUnknownCategory)
		}
		if _, seen := t.rules[entry.Category]; seen {
			return nil, fmt.Errorf("seed category %q: %w", entry.Category, ErrDuplicateCategory)
		}

		compiled := make([]Rule, 0, len(entry.Patterns))
		for i, expr := range entry.Patterns {
			rule, err := compileRule(entry.Category, expr)
			if err != nil {
				return nil, fmt.Errorf("seed category %q pattern %d: %w", entry.Category, i+1, err)
			}
			compiled = append(compiled, rule)
		}

		t.order = append(t.order, entry.Category)
		t.rules[entry.Category] = compiled
	}

	for _, cat := range model.Categories() {
		if _, seen := t.rules[cat]; !seen {
			t.order = append(t.order, cat)
			t.rules[cat] = nil
		}
	}

	return t, nil
}

// MustDefault returns a table built from DefaultSeed. It panics if the
// built-in seed fails to compile.
func MustDefault() *RuleTable {
	t, err := NewRuleTable(DefaultSeed())
	if err != nil {
		panic(fmt.Sprintf("default seed: %v", err))
	}
	return t
}

// Classify returns the category of the first pattern matching normalized, or
// model.Unknown when nothing matches. An empty label never matches.
func (t *RuleTable) Classify(normalized string) model.CategoryName {
	if m, ok := t.Lookup(normalized); ok {
		return m.Category
	}
	return model.Unknown
}

// Lookup returns the first rule matching normalized.
func (t *RuleTable) Lookup(normalized string) (Match, bool) {
	if normalized == "" {
		return Match{}, false
	}
	for _, cat := range t.order {
		for i, rule := range t.rules[cat] {
			if rule.Matches(normalized) {
				return Match{Category: cat, Pattern: rule.Expr, Index: i}, true
			}
		}
	}
	return Match{}, false
}

// AddPattern appends expr to the end of category's pattern list. The table is
// left unchanged when the category is outside the taxonomy or the expression
// does not compile. Existing classifications are not recomputed.
func (t *RuleTable) AddPattern(category model.CategoryName, expr string) error {
	if !category.IsValid() {
		return fmt.Errorf("add pattern to %q: %w", category, ErrUnknownCategory)
	}

	rule, err := compileRule(category, expr)
	if err != nil {
		return err
	}

	t.rules[category] = append(t.rules[category], rule)
	t.added = append(t.added, rule)
	return nil
}

// Categories returns the categories in match order.
func (t *RuleTable) Categories() []model.CategoryName {
	out := make([]model.CategoryName, len(t.order))
	copy(out, t.order)
	return out
}

// Patterns returns a copy of category's patterns in match order.
func (t *RuleTable) Patterns(category model.CategoryName) []string {
	rules := t.rules[category]
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Expr
	}
	return out
}

// Len returns the total number of patterns in the table.
func (t *RuleTable) Len() int {
	n := 0
	for _, rules := range t.rules {
		n += len(rules)
	}
	return n
}

// Snapshot returns an ordered copy of the table.
func (t *RuleTable) Snapshot() []CategoryPatterns {
	out := make([]CategoryPatterns, 0, len(t.order))
	for _, cat := range t.order {
		out = append(out, CategoryPatterns{Category: cat, Patterns: t.Patterns(cat)})
	}
	return out
}

// Added returns the patterns appended since the table was built, oldest first.
func (t *RuleTable) Added() []Rule {
	out := make([]Rule, len(t.added))
	copy(out, t.added)
	return out
}

// Compile checks expr and returns a rule anchored at the start of the label.
func Compile(category model.CategoryName, expr string) (Rule, error) {
	if !category.IsValid() {
		return Rule{}, fmt.Errorf("compile pattern for %q: %w", category, ErrUnknownCategory)
	}
	return compileRule(category, expr)
}

func compileRule(category model.CategoryName, expr string) (Rule, error) {
	if expr == "" {
		return Rule{}, fmt.Errorf("%w: empty expression", ErrInvalidPattern)
	}
	// Compile the bare expression first so errors quote what the operator typed.
	if _, err := regexp.Compile(expr); err != nil {
		return Rule{}, fmt.Errorf("%w %q: %w", ErrInvalidPattern, expr, err)
	}
	re, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		return Rule{}, fmt.Errorf("%w %q: %w", ErrInvalidPattern, expr, err)
	}
	return Rule{re: re, Category: category, Expr: expr}, nil
}
