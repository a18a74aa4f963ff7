package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/label"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the category rule table",
		Long:  `Inspect the ordered category rule table used by classify.

Categories are tried in order and patterns within a category in order; the
first pattern that matches a normalized label decides its category.`,
	}
	cmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "YAML rules file (default: rules.file setting, then built-in rules)")

	cmd.AddCommand(rulesListCmd(&rulesPath))
	cmd.AddCommand(rulesTestCmd(&rulesPath))

	return cmd
}

func rulesListCmd(rulesPath *string) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories and their patterns in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := loadRules(*rulesPath)
			if err != nil {
				return err
			}
			return listRules(cmd.OutOrStdout(), rules, asYAML)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print in rules file format")

	return cmd
}

func rulesTestCmd(rulesPath *string) *cobra.Command {
	var expr, category string

	cmd := &cobra.Command{
		Use:   "test LABEL...",
		Short: "Show how labels normalize and which rule classifies them",
		Long:  `Show how labels normalize and which rule classifies them.

With --pattern the expression is compiled the way a repair session would add
it, and each label reports whether the new pattern would match it.`,
		Example: `  balance rules test "Cash And Cash Equivalents" "Total Assets"
  balance rules test --rules my-rules.yaml "Deferred Revenue"
  balance rules test --pattern 'deferred_(revenue|income)' --category current_liabilities "Deferred Revenue"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRules(*rulesPath)
			if err != nil {
				return err
			}

			var candidate *pattern.Rule
			if expr != "" {
				rule, err := pattern.Compile(model.CategoryName(category), expr)
				if err != nil {
					return common.NewUserError("--pattern needs a valid expression and --category one of "+categoryNames(), err)
				}
				candidate = &rule
			}
			return testLabels(cmd.OutOrStdout(), rules, args, candidate)
		},
	}
	cmd.Flags().StringVar(&expr, "pattern", "", "candidate pattern to try against the labels")
	cmd.Flags().StringVar(&category, "category", "", "category for --pattern")

	return cmd
}

func categoryNames() string {
	names := make([]string, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func listRules(out io.Writer, rules *pattern.RuleTable, asYAML bool) error {
	if asYAML {
		data, err := pattern.MarshalSeed(rules.Snapshot())
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	_, err := fmt.Fprintln(out, cli.RenderRules(rules.Snapshot()))
	return err
}

// testLabels reports the normalized form and current classification of each
// label, plus whether candidate would match it when one is given.
func testLabels(out io.Writer, rules pattern.Classifier, labels []string, candidate *pattern.Rule) error {
	for i, normalized := range label.NormalizeAll(labels) {
		line := fmt.Sprintf("%q → %s: ", labels[i], normalized)
		if match, ok := rules.Lookup(normalized); ok {
			line += cli.FormatSuccess(fmt.Sprintf("%s (pattern %s)", match.Category, match.Pattern))
		} else {
			line += cli.FormatWarning("unknown")
		}

		if candidate != nil {
			verdict := "would not match"
			if candidate.Matches(normalized) {
				verdict = "would match"
			}
			line += fmt.Sprintf("  [%s %s → %s]", candidate.Expr, verdict, candidate.Category)
		}

		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
