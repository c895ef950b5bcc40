package widget

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-widget/internal/logger"
	"payment-widget/internal/models"
)

func newCountingReporter(delay time.Duration) (*StatusReporter, *int) {
	count := 0
	r := NewStatusReporter("w-test", func() { count++ }, delay, logger.Discard())
	return r, &count
}

func TestReporterNotifiesOncePerStatusChange(t *testing.T) {
	r, count := newCountingReporter(0)

	id, err := r.BeginAttempt()
	require.NoError(t, err)
	assert.Equal(t, 1, *count)
	assert.Equal(t, models.StatusProcessing, r.Status())

	assert.True(t, r.Finish(models.Outcome{AttemptID: id, Status: models.StatusSubmitted, PaymentMethodID: "pm_1"}))
	assert.Equal(t, 2, *count)
	assert.Equal(t, models.Outputs{PaymentStatus: models.StatusSubmitted, PaymentMethodId: "pm_1"}, r.Outputs())

	r.SetFieldError("Your card number is incomplete.")
	assert.Equal(t, 2, *count, "field errors are not status changes")

	r.Reset()
	assert.Equal(t, 3, *count)
	assert.Equal(t, models.Outputs{PaymentStatus: models.StatusNew}, r.Outputs())
	assert.Empty(t, r.View().FieldError)
}

func TestReporterRejectsOverlappingAttempts(t *testing.T) {
	r, _ := newCountingReporter(0)

	_, err := r.BeginAttempt()
	require.NoError(t, err)
	_, err = r.BeginAttempt()
	assert.ErrorIs(t, err, ErrAttemptInFlight)
}

func TestReporterDropsStaleOutcome(t *testing.T) {
	r, count := newCountingReporter(0)

	id, err := r.BeginAttempt()
	require.NoError(t, err)
	r.Reset()

	assert.False(t, r.Finish(models.Outcome{AttemptID: id, Status: models.StatusCompleted}))
	assert.Equal(t, models.StatusNew, r.Status())
	assert.Equal(t, 2, *count)
}

func TestReporterKeepsPaymentMethodOnlyForSubmitted(t *testing.T) {
	r, _ := newCountingReporter(0)

	id, _ := r.BeginAttempt()
	r.Finish(models.Outcome{AttemptID: id, Status: models.StatusCompleted, PaymentMethodID: "pm_ignored"})
	assert.Empty(t, r.Outputs().PaymentMethodId)
}

func TestReporterErrorClearsAfterDelay(t *testing.T) {
	r, _ := newCountingReporter(20 * time.Millisecond)

	id, _ := r.BeginAttempt()
	r.Finish(models.Outcome{AttemptID: id, Status: models.StatusError, ErrorMessage: "Your card was declined."})
	assert.Equal(t, "Your card was declined.", r.View().FieldError)

	assert.Eventually(t, func() bool { return r.View().FieldError == "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.StatusError, r.Status(), "status survives the message")
}

func TestReporterNewErrorReplacesTimer(t *testing.T) {
	r, _ := newCountingReporter(50 * time.Millisecond)

	r.ShowError("first")
	time.Sleep(30 * time.Millisecond)
	r.ShowError("second")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, "second", r.View().FieldError)
}

func TestReporterSubscribe(t *testing.T) {
	r, _ := newCountingReporter(0)
	events, cancel := r.Subscribe()
	defer cancel()

	id, _ := r.BeginAttempt()
	r.SetFieldError("Your card's expiration date is incomplete.")
	r.Finish(models.Outcome{AttemptID: id, Status: models.StatusCompleted})

	ev := <-events
	assert.Equal(t, models.EventStatus, ev.Type)
	assert.Equal(t, models.StatusProcessing, ev.Status)
	assert.True(t, ev.Busy)
	assert.False(t, ev.SubmitEnabled)

	ev = <-events
	assert.Equal(t, models.EventFieldError, ev.Type)
	assert.Equal(t, "Your card's expiration date is incomplete.", ev.Message)

	ev = <-events
	assert.Equal(t, models.StatusCompleted, ev.Status)
	assert.True(t, ev.ResultVisible)
	assert.Equal(t, "w-test", ev.WidgetID)
}

func TestReporterCloseEndsSubscriptions(t *testing.T) {
	r, _ := newCountingReporter(0)
	events, cancel := r.Subscribe()

	r.Close()
	_, open := <-events
	assert.False(t, open)
	cancel()

	_, err := r.BeginAttempt()
	assert.ErrorIs(t, err, ErrWidgetDestroyed)

	late, _ := r.Subscribe()
	_, open = <-late
	assert.False(t, open)
}

func TestReporterStatusHookSeesEveryStatusWhenViewersLag(t *testing.T) {
	r, _ := newCountingReporter(0)
	var statuses []models.PaymentStatus
	r.onStatus = func(ev models.WidgetEvent) {
		assert.Equal(t, models.EventStatus, ev.Type)
		statuses = append(statuses, ev.Status)
	}
	events, cancel := r.Subscribe()
	defer cancel()

	for i := 0; i < 2; i++ {
		id, err := r.BeginAttempt()
		require.NoError(t, err)
		for j := 0; j < 2*subscriberBuffer; j++ {
			r.SetFieldError(fmt.Sprintf("Your card number is incomplete (%d).", j))
		}
		require.True(t, r.Finish(models.Outcome{AttemptID: id, Status: models.StatusSubmitted, PaymentMethodID: "pm_1"}))
	}
	r.Reset()

	assert.Equal(t, []models.PaymentStatus{
		models.StatusProcessing, models.StatusSubmitted,
		models.StatusProcessing, models.StatusSubmitted,
		models.StatusNew,
	}, statuses)
	assert.Len(t, events, subscriberBuffer, "viewers still drop once full")
}
