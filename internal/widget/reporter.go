package widget

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"payment-widget/internal/logger"
	"payment-widget/internal/models"
)

const subscriberBuffer = 32

// StatusReporter is the only writer of the payment status. Every status
// mutation triggers exactly one call to notify.
type StatusReporter struct {
	mu              sync.Mutex
	widgetID        string
	status          models.PaymentStatus
	paymentMethodID string
	fieldError      string
	attemptID       string
	errorDelay      time.Duration
	clearTimer      *time.Timer
	notify          func()
	onStatus        func(models.WidgetEvent)
	subscribers     map[int]chan models.WidgetEvent
	nextSub         int
	closed          bool
	log             *logger.Logger
}

func NewStatusReporter(widgetID string, notify func(), errorDelay time.Duration, log *logger.Logger) *StatusReporter {
	if notify == nil {
		notify = func() {}
	}
	return &StatusReporter{
		widgetID:    widgetID,
		status:      models.StatusNew,
		errorDelay:  errorDelay,
		notify:      notify,
		subscribers: make(map[int]chan models.WidgetEvent),
		log:         log,
	}
}

func (r *StatusReporter) Outputs() models.Outputs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.Outputs{PaymentStatus: r.status, PaymentMethodId: r.paymentMethodID}
}

func (r *StatusReporter) Status() models.PaymentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// View returns the UI-facing state: inline error, busy indicator and submit control.
func (r *StatusReporter) View() models.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.View{
		Outputs:       models.Outputs{PaymentStatus: r.status, PaymentMethodId: r.paymentMethodID},
		FieldError:    r.fieldError,
		Busy:          r.status == models.StatusProcessing,
		SubmitEnabled: r.status != models.StatusProcessing,
		ResultVisible: r.status == models.StatusCompleted,
	}
}

// BeginAttempt moves to Processing and returns the new attempt id. It fails
// while another attempt is processing since the submit control is disabled.
func (r *StatusReporter) BeginAttempt() (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrWidgetDestroyed
	}
	if r.status == models.StatusProcessing {
		r.mu.Unlock()
		return "", ErrAttemptInFlight
	}
	r.attemptID = uuid.NewString()
	r.status = models.StatusProcessing
	r.setFieldErrorLocked("")
	id := r.attemptID
	ev := r.eventLocked(models.EventStatus, "")
	r.recordLocked(ev)
	r.mu.Unlock()

	r.log.LogPayment("PROCESSING", r.widgetID, fmt.Sprintf("attempt %s started", id))
	r.emit(ev)
	return id, nil
}

// Finish commits the outcome of an attempt. It returns false if the attempt
// is no longer current, e.g. a reset happened while it was in flight.
func (r *StatusReporter) Finish(outcome models.Outcome) bool {
	r.mu.Lock()
	if r.closed || outcome.AttemptID == "" || outcome.AttemptID != r.attemptID {
		r.mu.Unlock()
		r.log.Warn("WIDGET", fmt.Sprintf("%s: dropping outcome of stale attempt %s (%s)", r.widgetID, outcome.AttemptID, outcome.Status))
		return false
	}
	r.attemptID = ""
	r.status = outcome.Status
	if outcome.Status == models.StatusSubmitted {
		r.paymentMethodID = outcome.PaymentMethodID
	}
	if outcome.ErrorMessage != "" {
		r.showErrorLocked(outcome.ErrorMessage)
	}
	ev := r.eventLocked(models.EventStatus, outcome.ErrorMessage)
	ev.AttemptID = outcome.AttemptID
	r.recordLocked(ev)
	r.mu.Unlock()

	r.log.LogPayment("FINISHED", r.widgetID, fmt.Sprintf("attempt %s ended with status %s", outcome.AttemptID, outcome.Status))
	r.emit(ev)
	return true
}

// Reset returns to New, clears the payment method id and the inline error and
// invalidates any in-flight attempt.
func (r *StatusReporter) Reset() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.attemptID = ""
	r.status = models.StatusNew
	r.paymentMethodID = ""
	r.setFieldErrorLocked("")
	ev := r.eventLocked(models.EventStatus, "")
	r.recordLocked(ev)
	r.mu.Unlock()

	r.log.LogPayment("RESET", r.widgetID, "status reset to new")
	r.emit(ev)
}

// SetFieldError publishes live card validation text. It does not touch the status.
func (r *StatusReporter) SetFieldError(msg string) {
	r.mu.Lock()
	if r.closed || r.fieldError == msg {
		r.mu.Unlock()
		return
	}
	r.setFieldErrorLocked(msg)
	ev := r.eventLocked(models.EventFieldError, msg)
	r.mu.Unlock()
	r.publish(ev)
}

// ShowError displays a message that clears itself after the error delay.
func (r *StatusReporter) ShowError(msg string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.showErrorLocked(msg)
	ev := r.eventLocked(models.EventFieldError, msg)
	r.mu.Unlock()
	r.publish(ev)
}

func (r *StatusReporter) showErrorLocked(msg string) {
	r.setFieldErrorLocked(msg)
	if r.errorDelay <= 0 {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(r.errorDelay, func() {
		r.mu.Lock()
		if r.closed || r.clearTimer != t || r.fieldError != msg {
			r.mu.Unlock()
			return
		}
		r.fieldError = ""
		r.clearTimer = nil
		ev := r.eventLocked(models.EventFieldError, "")
		r.mu.Unlock()
		r.publish(ev)
	})
	r.clearTimer = t
}

func (r *StatusReporter) setFieldErrorLocked(msg string) {
	if r.clearTimer != nil {
		r.clearTimer.Stop()
		r.clearTimer = nil
	}
	r.fieldError = msg
}

func (r *StatusReporter) eventLocked(t models.EventType, msg string) models.WidgetEvent {
	return models.WidgetEvent{
		Type:            t,
		WidgetID:        r.widgetID,
		AttemptID:       r.attemptID,
		Status:          r.status,
		PaymentMethodID: r.paymentMethodID,
		Message:         msg,
		Busy:            r.status == models.StatusProcessing,
		SubmitEnabled:   r.status != models.StatusProcessing,
		ResultVisible:   r.status == models.StatusCompleted,
		Timestamp:       time.Now().UTC(),
	}
}

// recordLocked hands a status event to the lossless hook. Unlike
// subscribers it never drops.
func (r *StatusReporter) recordLocked(ev models.WidgetEvent) {
	if r.onStatus != nil {
		r.onStatus(ev)
	}
}

// emit is used for status mutations: it notifies the host once and fans the event out.
func (r *StatusReporter) emit(ev models.WidgetEvent) {
	r.notify()
	r.publish(ev)
}

func (r *StatusReporter) publish(ev models.WidgetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// slow viewer, drop
		}
	}
}

// Subscribe returns a stream of widget events and a function to stop it.
func (r *StatusReporter) Subscribe() (<-chan models.WidgetEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan models.WidgetEvent, subscriberBuffer)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subscribers[id]; ok {
				delete(r.subscribers, id)
				close(c)
			}
		})
	}
}

// Close stops timers and ends all subscriptions.
func (r *StatusReporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.clearTimer != nil {
		r.clearTimer.Stop()
		r.clearTimer = nil
	}
	for id, ch := range r.subscribers {
		delete(r.subscribers, id)
		close(ch)
	}
}
