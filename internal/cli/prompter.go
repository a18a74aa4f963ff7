package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/repair"
	"github.com/schollz/progressbar/v3"
)

// backChoice is the category menu entry that returns without choosing.
const backChoice = "7"

// Prompter implements repair.Prompter on a line-oriented console.
type Prompter struct {
	startTime   time.Time
	writer      io.Writer
	reader      *LineReader
	progressBar *progressbar.ProgressBar
	total       int
	mu          sync.Mutex

	// hinted is set once the pattern hint has been shown for the current row.
	hinted bool
}

// NewCLIPrompter creates a new CLI prompter with the given reader and writer.
func NewCLIPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader:    NewLineReader(reader),
		writer:    writer,
		startTime: time.Now(),
	}
}

// ChooseAction shows the unknown row and asks how to resolve it.
func (p *Prompter) ChooseAction(ctx context.Context, prompt repair.Prompt) (repair.Action, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.hinted = false

	if _, err := fmt.Fprintln(p.writer, RenderBox("Unknown Line Item", p.formatRow(prompt))); err != nil {
		return 0, fmt.Errorf("failed to write row box: %w", err)
	}

	menu := "How do you want to categorize it?\n" +
		"  [1] Add a pattern to the rule table\n" +
		"  [2] Set the category for this row only\n" +
		"  [3] Stop and leave remaining rows unknown\n"
	if _, err := fmt.Fprintln(p.writer, menu); err != nil {
		return 0, fmt.Errorf("failed to write action menu: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Select a number", []string{"1", "2", "3"})
	if err != nil {
		return 0, err
	}

	n, _ := strconv.Atoi(choice)
	return repair.Action(n), nil
}

// ChooseCategory shows the category menu. Choosing 7 goes back.
func (p *Prompter) ChooseCategory(ctx context.Context, _ repair.Prompt, purpose repair.Purpose) (model.CategoryName, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	question := "Which category does this row belong to?"
	if purpose == repair.PurposeExtendRules {
		question = "Which category should the new pattern be added to?"
	}

	categories := model.Categories()
	valid := make([]string, 0, len(categories)+1)

	var b strings.Builder
	b.WriteString(question + "\n")
	for i, c := range categories {
		key := strconv.Itoa(i + 1)
		valid = append(valid, key)
		fmt.Fprintf(&b, "  [%s] %s\n", key, c.Title())
	}
	valid = append(valid, backChoice)
	fmt.Fprintf(&b, "  [%s] Back\n", backChoice)

	if _, err := fmt.Fprintln(p.writer, b.String()); err != nil {
		return "", false, fmt.Errorf("failed to write category menu: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Select a number", valid)
	if err != nil {
		return "", false, err
	}
	if choice == backChoice {
		return "", false, nil
	}

	n, _ := strconv.Atoi(choice)
	return categories[n-1], true, nil
}

// EnterPattern reads a regular expression. Blank input is re-prompted;
// compile errors are reported by the caller through ReportError. The example
// hint is printed once per row, not on every retry.
func (p *Prompter) EnterPattern(ctx context.Context, prompt repair.Prompt, category model.CategoryName) (string, error) {
	if !p.hinted {
		hint := fmt.Sprintf("Patterns match the normalized label from its first character. Example: %s",
			BoldStyle.Render(SuggestPattern(prompt.Row.Normalized)))
		if _, err := fmt.Fprintln(p.writer, SubtleStyle.Render(hint)); err != nil {
			return "", fmt.Errorf("failed to write pattern hint: %w", err)
		}
		p.hinted = true
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if _, err := fmt.Fprint(p.writer, FormatPrompt(fmt.Sprintf("Pattern for %s", category.Title()))); err != nil {
			return "", fmt.Errorf("failed to write pattern prompt: %w", err)
		}

		input, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}

		if input == "" {
			if _, err := fmt.Fprintln(p.writer, FormatError("Pattern cannot be empty. Please try again.")); err != nil {
				slog.Warn("Failed to write empty pattern error", "error", err)
			}
			continue
		}

		return input, nil
	}
}

// ReportError prints a rejected input message.
func (p *Prompter) ReportError(_ context.Context, err error) {
	msg := err.Error()
	if errors.Is(err, repair.ErrPatternMissedRow) {
		if _, werr := fmt.Fprintln(p.writer, FormatWarning(msg)); werr != nil {
			slog.Warn("Failed to write warning", "error", werr)
		}
		return
	}
	if _, werr := fmt.Fprintln(p.writer, FormatError(msg+". Please try again.")); werr != nil {
		slog.Warn("Failed to write error message", "error", werr)
	}
}

// Progress updates the resolved-rows progress bar.
func (p *Prompter) Progress(resolved, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.progressBar == nil || p.total != total {
		p.total = total
		p.initProgressBar()
	}
	if err := p.progressBar.Set(resolved); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		slog.Warn("Failed to write newline", "error", err)
	}
}

// ShowSummary displays the end-of-session summary. Patterns added during the
// session are listed because they are not kept after the process exits.
func (p *Prompter) ShowSummary(result repair.Result) {
	p.mu.Lock()
	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
		if _, err := fmt.Fprintln(p.writer); err != nil {
			slog.Warn("Failed to write newline", "error", err)
		}
	}
	p.mu.Unlock()

	title := "Repair Complete"
	if result.Outcome == repair.StateAborted {
		title = "Repair Stopped"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Statistics:\n", ChartIcon)
	fmt.Fprintf(&b, "  • Unknown rows at start: %d\n", result.Total)
	fmt.Fprintf(&b, "  • Resolved: %d\n", result.Resolved())
	fmt.Fprintf(&b, "  • Row overrides: %d\n", result.Overrides)
	fmt.Fprintf(&b, "  • Patterns added: %d\n", len(result.PatternsAdded))
	fmt.Fprintf(&b, "  • Still unknown: %d\n", result.Remaining)
	fmt.Fprintf(&b, "  • Time taken: %s\n", time.Since(p.startTime).Round(time.Second))

	if len(result.PatternsAdded) > 0 {
		fmt.Fprintf(&b, "\n%s Patterns added this session (not saved):\n", RuleIcon)
		for _, added := range result.PatternsAdded {
			fmt.Fprintf(&b, "  • %s: %s (%d rows)\n", added.Category, added.Expr, added.Resolved)
		}
	}

	if _, err := fmt.Fprintln(p.writer, RenderBox(title, b.String())); err != nil {
		slog.Warn("Failed to write summary box", "error", err)
	}
}

// SuggestPattern returns an exact-match pattern for a normalized label.
func SuggestPattern(normalized string) string {
	return "^" + regexp.QuoteMeta(normalized) + "$"
}

func (p *Prompter) formatRow(prompt repair.Prompt) string {
	row := prompt.Row

	var b strings.Builder
	b.WriteString(TitleStyle.Render(row.RawLabel) + "\n")
	fmt.Fprintf(&b, "  Normalized: %s\n", row.Normalized)
	if prompt.Total > 0 {
		fmt.Fprintf(&b, "  Unknown rows left: %d of %d\n", prompt.Unresolved, prompt.Total)
	}
	for i, v := range row.Values {
		if i == 3 {
			fmt.Fprintf(&b, "  … %d more periods\n", len(row.Values)-3)
			break
		}
		if v.Valid {
			fmt.Fprintf(&b, "  Value %d: %s\n", i+1, v.Decimal.StringFixed(2))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *Prompter) initProgressBar() {
	p.progressBar = progressbar.NewOptions(p.total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Resolving unknown rows...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		msg := fmt.Sprintf("%s %q. Use a number from %s to %s.",
			repair.ErrInvalidSelection, input, validChoices[0], validChoices[len(validChoices)-1])
		if _, err := fmt.Fprintln(p.writer, FormatError(msg)); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	input, err := p.reader.ReadLine(ctx)
	switch {
	case err == nil:
		return input, nil
	case errors.Is(err, io.EOF):
		return "", fmt.Errorf("input terminated: %w", repair.ErrInputClosed)
	case errors.Is(err, ErrInputCancelled):
		return "", fmt.Errorf("%w: %w", ErrInputCancelled, ctx.Err())
	default:
		return "", fmt.Errorf("failed to read input: %w", err)
	}
}

// Ensure Prompter implements the repair interfaces.
var (
	_ repair.Prompter         = (*Prompter)(nil)
	_ repair.ProgressReporter = (*Prompter)(nil)
)
