// Package widget implements the payment widget state machine: configuration
// snapshots and diffing, the payment client lifecycle, the payment
// orchestrator and the status reporter.
package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"payment-widget/internal/logger"
	"payment-widget/internal/models"
)

type Options struct {
	// MountTarget is where the card element is mounted.
	MountTarget string
	// ErrorDisplayDelay is how long submission errors stay visible.
	ErrorDisplayDelay time.Duration
	// Notify is called once for every status change.
	Notify func()
	// OnStatus receives every committed status event in commit order. It runs
	// under the reporter's lock and must not block.
	OnStatus func(models.WidgetEvent)
}

// Widget is one embedded payment control. All state is per instance.
type Widget struct {
	id string

	mu        sync.Mutex
	snapshot  Snapshot
	latch     ResetLatch
	destroyed bool

	lifecycle    *LifecycleManager
	orchestrator *Orchestrator
	reporter     *StatusReporter
	log          *logger.Logger
}

// New initializes a widget. Configuration arrives with UpdateView.
func New(id string, loader Loader, opts Options, log *logger.Logger) *Widget {
	if opts.MountTarget == "" {
		opts.MountTarget = "#card-element"
	}
	reporter := NewStatusReporter(id, opts.Notify, opts.ErrorDisplayDelay, log)
	reporter.onStatus = opts.OnStatus
	lifecycle := NewLifecycleManager(loader, opts.MountTarget, reporter.SetFieldError, log)
	return &Widget{
		id:           id,
		lifecycle:    lifecycle,
		reporter:     reporter,
		orchestrator: NewOrchestrator(id, lifecycle, reporter, log),
		log:          log,
	}
}

func (w *Widget) ID() string { return w.id }

// UpdateView applies a new host configuration. Setup failures are shown
// inline and returned; they never change the payment status.
func (w *Widget) UpdateView(ctx context.Context, cfg models.WidgetConfig) error {
	return w.apply(ctx, cfg, false)
}

// Restore applies a previously persisted configuration to a fresh widget.
// A reset flag that was held when the configuration was saved is treated as
// already fired.
func (w *Widget) Restore(ctx context.Context, cfg models.WidgetConfig) error {
	return w.apply(ctx, cfg, true)
}

func (w *Widget) apply(ctx context.Context, cfg models.WidgetConfig, restoring bool) error {
	snap := NewSnapshot(cfg)

	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrWidgetDestroyed
	}
	changes := Diff(w.snapshot, snap)
	w.snapshot = snap
	fireReset := w.latch.Observe(snap.ResetRequested) && !restoring
	w.mu.Unlock()

	err := w.lifecycle.Apply(ctx, snap, changes)
	if errors.Is(err, ErrSessionReplaced) {
		// a newer update owns the session now
		err = nil
	}
	if err != nil {
		w.log.Error("WIDGET", fmt.Sprintf("%s: applying configuration failed: %v", w.id, err))
		w.reporter.ShowError(asPaymentError(err).Message)
	}
	if fireReset {
		w.reset()
	}
	return err
}

func (w *Widget) reset() {
	resetsTotal.Inc()
	w.reporter.Reset()
	w.lifecycle.ClearCard()
}

// Pay handles a submission with the configuration of the last update.
func (w *Widget) Pay(ctx context.Context) (models.Outcome, error) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return models.Outcome{}, ErrWidgetDestroyed
	}
	snap := w.snapshot
	w.mu.Unlock()
	return w.orchestrator.Pay(ctx, snap)
}

// EnterCard feeds card input to the card element.
func (w *Widget) EnterCard(details models.CardDetails) error {
	return w.lifecycle.EnterCard(details)
}

func (w *Widget) GetOutputs() models.Outputs {
	return w.reporter.Outputs()
}

func (w *Widget) View() models.View {
	v := w.reporter.View()
	v.SessionState = w.lifecycle.State().String()
	return v
}

func (w *Widget) Subscribe() (<-chan models.WidgetEvent, func()) {
	return w.reporter.Subscribe()
}

// Destroy tears the session down. It is safe to call more than once.
func (w *Widget) Destroy() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	w.mu.Unlock()

	w.lifecycle.Teardown()
	w.reporter.Close()
	w.log.Info("WIDGET", fmt.Sprintf("%s: destroyed", w.id))
}
