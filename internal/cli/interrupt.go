package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler turns SIGINT/SIGTERM into context cancellation for a
// repair session and tells the operator where the session stood.
type InterruptHandler struct {
	writer      io.Writer
	cancelFunc  context.CancelFunc
	resolved    int
	total       int
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler printing to writer, stdout when nil.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts returns a context canceled on the first interrupt signal.
// Signal handling stops when ctx ends.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancelFunc = cancel
	h.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			h.interrupt()
		case <-ctx.Done():
		}
	}()

	return ctx
}

// Progress records how far the session got. It satisfies
// repair.ProgressReporter so the loop keeps it current.
func (h *InterruptHandler) Progress(resolved, total int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resolved, h.total = resolved, total
}

func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	if !h.interrupted {
		h.interrupted = true
		h.showInterruptMessage()
	}
	cancel := h.cancelFunc
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// showInterruptMessage must be called with mu held.
func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning("Repair interrupted!")

	if h.total > 0 {
		msg += "\n" + FormatInfo(fmt.Sprintf("%d of %d unknown rows were resolved; the rest stay unknown.", h.resolved, h.total))
		msg += "\n" + FormatInfo("Patterns added this session are not saved; copy them into your rules file to keep them.")
	}

	msg += "\n" + FormatInfo("Goodbye! "+BalanceIcon) + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted reports whether a signal ended the session.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
