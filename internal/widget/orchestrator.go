package widget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"payment-widget/internal/logger"
	"payment-widget/internal/models"
)

type Strategy string

const (
	StrategyManualConfirm Strategy = "manual_confirm"
	StrategyAutoConfirm   Strategy = "auto_confirm"
)

// SelectStrategy picks the confirmation strategy for one attempt.
func SelectStrategy(snap Snapshot) (Strategy, error) {
	if snap.AutoConfirm {
		return StrategyAutoConfirm, nil
	}
	if snap.PaymentSecret == "" {
		return "", newPaymentError(KindConfiguration, MsgMissingConfiguration, ErrMissingPaymentSecret)
	}
	return StrategyManualConfirm, nil
}

// attempt carries everything one payment attempt needs across its SDK calls.
type attempt struct {
	id       string
	widgetID string
	snap     Snapshot
	strategy Strategy
	session  Session
	started  time.Time
}

// Orchestrator executes payment attempts against the session borrowed from
// the lifecycle manager.
type Orchestrator struct {
	widgetID  string
	lifecycle *LifecycleManager
	reporter  *StatusReporter
	log       *logger.Logger
}

func NewOrchestrator(widgetID string, lifecycle *LifecycleManager, reporter *StatusReporter, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		widgetID:  widgetID,
		lifecycle: lifecycle,
		reporter:  reporter,
		log:       log,
	}
}

// Pay runs one attempt and returns its outcome. The only error returned is
// ErrAttemptInFlight (or ErrWidgetDestroyed), in which case no attempt was started.
func (o *Orchestrator) Pay(ctx context.Context, snap Snapshot) (models.Outcome, error) {
	id, err := o.reporter.BeginAttempt()
	if err != nil {
		return models.Outcome{}, err
	}
	a := &attempt{id: id, widgetID: o.widgetID, snap: snap, started: time.Now()}

	ctx, span := otel.Tracer("widget").Start(ctx, "Orchestrator.Pay")
	defer span.End()
	span.SetAttributes(attribute.String("widget.id", o.widgetID), attribute.String("attempt.id", id))

	outcome := o.run(ctx, a)
	outcome.AttemptID = id
	outcome.Strategy = string(a.strategy)

	strategy := string(a.strategy)
	if strategy == "" {
		strategy = "none"
	}
	attemptsTotal.WithLabelValues(strategy, string(outcome.Status)).Inc()
	attemptDuration.WithLabelValues(strategy).Observe(time.Since(a.started).Seconds())
	span.SetAttributes(attribute.String("attempt.strategy", strategy), attribute.String("attempt.status", string(outcome.Status)))
	if outcome.Status == models.StatusError {
		span.SetStatus(codes.Error, outcome.ErrorMessage)
	}

	o.reporter.Finish(outcome)
	return outcome, nil
}

func (o *Orchestrator) run(ctx context.Context, a *attempt) (outcome models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("PAYMENT", fmt.Sprintf("%s: attempt %s panicked: %v", o.widgetID, a.id, r))
			outcome = failed(newPaymentError(KindUnhandled, MsgUnhandled, fmt.Errorf("panic: %v", r)))
		}
	}()

	if a.snap.ClientKey == "" {
		return failed(newPaymentError(KindConfiguration, MsgMissingConfiguration, ErrMissingClientKey))
	}
	strategy, err := SelectStrategy(a.snap)
	if err != nil {
		return failed(err)
	}
	a.strategy = strategy

	session, err := o.lifecycle.EnsureReady(ctx)
	if err != nil {
		var pe *PaymentError
		if !errors.As(err, &pe) {
			err = newPaymentError(KindUnhandled, MsgUnhandled, err)
		}
		return failed(err)
	}
	a.session = session

	o.log.LogPayment("DISPATCH", o.widgetID, fmt.Sprintf("attempt %s using %s", a.id, strategy))
	switch strategy {
	case StrategyManualConfirm:
		return o.manualConfirm(ctx, a)
	default:
		return o.autoConfirm(ctx, a)
	}
}

func (o *Orchestrator) manualConfirm(ctx context.Context, a *attempt) models.Outcome {
	params := ConfirmParams{Card: a.session.Card}
	if a.snap.CustomerName != "" {
		params.BillingDetails = &BillingDetails{Name: a.snap.CustomerName}
	}
	intent, err := a.session.Client.ConfirmPayment(ctx, a.snap.PaymentSecret, params)
	if err != nil {
		o.log.Error("PAYMENT", fmt.Sprintf("%s: confirmation failed: %v", o.widgetID, err))
		return failed(err)
	}
	// A confirmed intent is final even if the session was replaced meanwhile.
	// Only a reset discards it, through the attempt id.
	if intent != nil {
		o.log.LogPayment("CONFIRMED", o.widgetID, fmt.Sprintf("intent %s is %s", intent.ID, intent.Status))
	}
	return models.Outcome{Status: models.StatusCompleted}
}

func (o *Orchestrator) autoConfirm(ctx context.Context, a *attempt) models.Outcome {
	// The billing name is always sent here, empty or not.
	pm, err := a.session.Client.CreatePaymentMethod(ctx, PaymentMethodParams{
		Card:           a.session.Card,
		BillingDetails: BillingDetails{Name: a.snap.CustomerName},
	})
	if err != nil {
		o.log.Error("PAYMENT", fmt.Sprintf("%s: payment method creation failed: %v", o.widgetID, err))
		return failed(err)
	}
	if pm == nil || pm.ID == "" {
		return failed(newPaymentError(KindIntegrity, MsgIntegrity, ErrMissingPaymentMethod))
	}
	if !o.lifecycle.IsCurrent(a.session) {
		return failed(newPaymentError(KindUnhandled, MsgSessionReplaced, ErrSessionReplaced))
	}
	if err := a.session.Group.Submit(ctx); err != nil {
		o.log.Error("PAYMENT", fmt.Sprintf("%s: elements submit failed: %v", o.widgetID, err))
		return failed(err)
	}
	o.log.LogPayment("SUBMITTED", o.widgetID, fmt.Sprintf("payment method %s submitted", pm.ID))
	return models.Outcome{Status: models.StatusSubmitted, PaymentMethodID: pm.ID}
}

func failed(err error) models.Outcome {
	pe := asPaymentError(err)
	return models.Outcome{
		Status:       models.StatusError,
		ErrorMessage: pe.Message,
		ErrorKind:    string(pe.Kind),
	}
}
