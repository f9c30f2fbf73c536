// Package auth verifies the unlock password in the background.
//
// A Worker runs at most one verification at a time. Submissions made while
// one is in flight are rejected, never queued, and a successful check is
// final.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tuxx/shaderlock/internal/logging"
)

var (
	// ErrAlreadyRunning rejects a submission while a check is in flight.
	ErrAlreadyRunning = errors.New("requested auth while already authenticating")
	// ErrInit reports that the verification client could not be set up.
	ErrInit = errors.New("authentication client init failed")
)

// Verifier checks a password with the host authentication stack.
type Verifier interface {
	Verify(ctx context.Context, service, username, password string) (bool, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, service, username, password string) (bool, error)

func (f VerifierFunc) Verify(ctx context.Context, service, username, password string) (bool, error) {
	return f(ctx, service, username, password)
}

// Phase is the coarse state of a Worker.
type Phase uint8

const (
	Idle Phase = iota
	Running
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// State is Idle, Running, or Done with a Result.
type State struct {
	Phase  Phase
	Result bool
}

// Options configures a Worker.
type Options struct {
	Service  string
	Verifier Verifier
	Logger   *slog.Logger
	// OnDone is called from the worker goroutine after each check.
	OnDone func(ok bool)
}

// Worker runs single-flight password checks.
type Worker struct {
	service  string
	verifier Verifier
	log      *slog.Logger
	onDone   func(bool)

	mu    sync.Mutex
	state State
	// rejected is set once a submission was refused during the current check.
	rejected bool
	wg       sync.WaitGroup
}

// NewWorker returns an idle worker.
func NewWorker(opts Options) *Worker {
	service := opts.Service
	if service == "" {
		service = DefaultService
	}
	return &Worker{
		service:  service,
		verifier: opts.Verifier,
		log:      logging.Or(opts.Logger).With("component", "auth"),
		onDone:   opts.OnDone,
	}
}

// Submit starts a check for username and password and returns at once.
// It fails with ErrAlreadyRunning if a check is in flight and does nothing
// once a check has succeeded.
func (w *Worker) Submit(username, password string) error {
	w.mu.Lock()
	switch {
	case w.state.Phase == Running:
		first := !w.rejected
		w.rejected = true
		w.mu.Unlock()
		if first {
			w.log.Warn(ErrAlreadyRunning.Error(), "user", username)
		}
		return ErrAlreadyRunning
	case w.state.Phase == Done && w.state.Result:
		w.mu.Unlock()
		return nil
	}
	w.state = State{Phase: Running}
	w.rejected = false
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(username, password)
	return nil
}

func (w *Worker) run(username, password string) {
	defer w.wg.Done()

	ok, err := w.verify(username, password)
	switch {
	case err != nil:
		w.log.Warn("authentication attempt failed", "user", username, "err", err)
	case !ok:
		w.log.Info("authentication rejected", "user", username)
	default:
		w.log.Info("authentication succeeded", "user", username)
	}

	w.mu.Lock()
	w.state = State{Phase: Done, Result: ok && err == nil}
	w.mu.Unlock()

	if w.onDone != nil {
		w.onDone(ok && err == nil)
	}
}

func (w *Worker) verify(username, password string) (ok bool, err error) {
	if w.verifier == nil {
		return false, fmt.Errorf("%w: no verifier configured", ErrInit)
	}
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("verifier panicked: %v", r)
		}
	}()
	return w.verifier.Verify(context.Background(), w.service, username, password)
}

// State returns a snapshot of the worker state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Running reports whether a check is in flight.
func (w *Worker) Running() bool {
	return w.State().Phase == Running
}

// IsAuthenticated reports whether the last finished check succeeded.
func (w *Worker) IsAuthenticated() bool {
	s := w.State()
	return s.Phase == Done && s.Result
}

// Wait blocks until no check is in flight.
func (w *Worker) Wait() {
	w.wg.Wait()
}
