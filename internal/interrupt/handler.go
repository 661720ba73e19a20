// Package interrupt turns SIGINT/SIGTERM into context cancellation so a run
// can stop its subprocesses and remove its temp files before exiting.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// forceWindow is the time window for a second Ctrl+C to force exit.
const forceWindow = 2 * time.Second

// Handler cancels its context on the first signal. A second signal within
// the force window exits immediately, skipping cleanup.
type Handler struct {
	mu             sync.Mutex
	firstInterrupt time.Time
	interrupted    bool
	forced         bool
	stopped        bool
	cancelFunc     context.CancelFunc
	done           chan struct{} // Signals listen goroutine to exit

	// Injected dependencies (for testing)
	exitFunc func(int)
	nowFunc  func() time.Time
	logger   zerolog.Logger
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	NowFunc  func() time.Time
	Logger   zerolog.Logger
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// Returns the handler and a context that is canceled on first interrupt.
func NewHandler(parent context.Context, logger zerolog.Logger) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return NewHandlerWithOptions(parent, Options{SigCh: sigCh, Logger: logger})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
// A nil SigCh starts no listener.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		cancelFunc: cancel,
		done:       make(chan struct{}),
		exitFunc:   opts.ExitFunc,
		nowFunc:    opts.NowFunc,
		logger:     opts.Logger,
	}
	if h.exitFunc == nil {
		h.exitFunc = os.Exit
	}
	if h.nowFunc == nil {
		h.nowFunc = time.Now
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

// listen handles incoming signals.
func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			if h.handle(sig) {
				return
			}
		}
	}
}

// handle processes one signal and reports whether listening should stop.
func (h *Handler) handle(sig os.Signal) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return true
	}
	now := h.nowFunc()

	if !h.interrupted {
		h.interrupted = true
		h.firstInterrupt = now
		h.cancelFunc()
		h.mu.Unlock()
		h.logger.Warn().
			Str("signal", sig.String()).
			Msg("interrupted, stopping and removing temp files (press Ctrl+C again to force)")
		return false
	}

	if now.Sub(h.firstInterrupt) > forceWindow {
		h.mu.Unlock()
		return false
	}

	h.forced = true
	h.mu.Unlock()
	h.logger.Error().Msg("forced exit, temp chunk files may remain")
	h.exitFunc(ExitInterrupt)
	return true // In case exitFunc doesn't actually exit (tests)
}

// WasInterrupted returns true if at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Forced returns true if a second interrupt forced an exit.
func (h *Handler) Forced() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forced
}

// Stop releases the signal subscription. It is safe to call more than once.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
}
