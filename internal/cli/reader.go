package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

type scannedLine struct {
	err  error
	text string
}

// LineReader hands out trimmed console lines while honoring context
// cancellation. A single background scanner feeds lines to a channel, so a
// prompt abandoned by a canceled context never swallows the operator's next
// answer: the line is kept for the following ReadLine call.
type LineReader struct {
	lines <-chan scannedLine
	start sync.Once
	src   *bufio.Scanner
	feed  chan scannedLine
	last  error
}

// NewLineReader wraps r. Scanning starts lazily on the first ReadLine.
func NewLineReader(r io.Reader) *LineReader {
	if r == nil {
		panic("reader cannot be nil")
	}
	feed := make(chan scannedLine, 1)
	return &LineReader{
		src:   bufio.NewScanner(r),
		feed:  feed,
		lines: feed,
	}
}

func (r *LineReader) scan() {
	defer close(r.feed)
	for r.src.Scan() {
		r.feed <- scannedLine{text: r.src.Text()}
	}
	err := r.src.Err()
	if err == nil {
		err = io.EOF
	}
	r.feed <- scannedLine{err: err}
}

// ReadLine returns the next line with surrounding whitespace removed. A final
// line without a trailing newline is returned as a normal line; io.EOF is
// only returned once nothing is left.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if r.last != nil {
		return "", r.last
	}
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}
	r.start.Do(func() { go r.scan() })

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case line, ok := <-r.lines:
		if !ok {
			r.last = io.EOF
			return "", r.last
		}
		if line.err != nil {
			r.last = line.err
			return "", r.last
		}
		return strings.TrimSpace(line.text), nil
	}
}
