package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"payment-widget/internal/kafka"
	"payment-widget/internal/logger"
	"payment-widget/internal/models"
	"payment-widget/internal/storage"
	"payment-widget/internal/utils"
	"payment-widget/internal/widget"
)

var (
	ErrWidgetNotFound  = errors.New("widget not found")
	ErrInvalidWidgetID = errors.New("invalid widget id")
	ErrSubmitLocked    = errors.New("a payment for this widget is being processed elsewhere")
)

const defaultPayTimeout = 90 * time.Second

var hostNotifications = promauto.NewCounter(prometheus.CounterOpts{
	Name: "widget_host_notifications_total",
	Help: "Status change notifications raised to hosts.",
})

// EventPublisher sends payment events downstream.
type EventPublisher interface {
	PublishPaymentEvent(event *models.PaymentEvent) error
}

// SubmitLock serializes submissions of one widget across replicas.
type SubmitLock interface {
	AcquireSubmit(ctx context.Context, widgetID, token string) (bool, error)
	ReleaseSubmit(ctx context.Context, widgetID, token string) error
}

type Options struct {
	MountTarget       string
	ErrorDisplayDelay time.Duration
	PayTimeout        time.Duration
}

type managedWidget struct {
	widget *widget.Widget
	outbox *eventOutbox
	done   chan struct{}
}

// stop destroys the widget and waits until its queued status events are published.
func (mw *managedWidget) stop() {
	mw.widget.Destroy()
	mw.outbox.close()
	<-mw.done
}

// WidgetService owns every widget instance served by this process.
type WidgetService struct {
	mu      sync.Mutex
	widgets map[string]*managedWidget

	loader   widget.Loader
	store    storage.Store
	producer EventPublisher
	lock     SubmitLock
	opts     Options
	log      *logger.Logger
}

// NewWidgetService builds the registry. producer and lock may be nil.
func NewWidgetService(loader widget.Loader, store storage.Store, producer EventPublisher, lock SubmitLock, opts Options, log *logger.Logger) *WidgetService {
	if opts.PayTimeout <= 0 {
		opts.PayTimeout = defaultPayTimeout
	}
	return &WidgetService{
		widgets:  make(map[string]*managedWidget),
		loader:   loader,
		store:    store,
		producer: producer,
		lock:     lock,
		opts:     opts,
		log:      log,
	}
}

// CreateWidget starts a new widget with its first configuration.
func (s *WidgetService) CreateWidget(ctx context.Context, cfg models.WidgetConfig) (string, models.View, error) {
	id := utils.GenerateWidgetID()
	s.log.LogProcess("WIDGET", fmt.Sprintf("Creating widget %s", id))

	mw := s.newManaged(id)
	s.mu.Lock()
	s.widgets[id] = mw
	s.mu.Unlock()

	if err := s.apply(ctx, mw.widget, cfg); err != nil {
		s.remove(id)
		return "", models.View{}, err
	}
	return id, mw.widget.View(), nil
}

// UpdateConfig applies a host configuration to an existing widget.
func (s *WidgetService) UpdateConfig(ctx context.Context, id string, cfg models.WidgetConfig) (models.View, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return models.View{}, err
	}
	if err := s.apply(ctx, w, cfg); err != nil {
		return models.View{}, err
	}
	return w.View(), nil
}

// apply updates the widget and persists the configuration. Setup failures are
// already shown inline by the widget and are not returned.
func (s *WidgetService) apply(ctx context.Context, w *widget.Widget, cfg models.WidgetConfig) error {
	err := w.UpdateView(ctx, cfg)
	var pe *widget.PaymentError
	switch {
	case errors.As(err, &pe):
		s.log.Warn("WIDGET", fmt.Sprintf("%s: configuration applied with setup error: %s", w.ID(), pe.Message))
	case err != nil:
		return err
	}

	// The client secret is never persisted; hosts send it again after a restore.
	stored := cfg
	stored.PaymentIntentClientSecret = ""
	if err := s.store.SaveConfig(&models.WidgetRecord{WidgetID: w.ID(), Config: stored}); err != nil {
		return fmt.Errorf("failed to save widget configuration: %w", err)
	}
	return nil
}

func (s *WidgetService) EnterCard(ctx context.Context, id string, details models.CardDetails) (models.View, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return models.View{}, err
	}
	if err := w.EnterCard(details); err != nil {
		return models.View{}, err
	}
	return w.View(), nil
}

// Pay submits the widget. The attempt runs to completion even if ctx is
// cancelled by the caller going away.
func (s *WidgetService) Pay(ctx context.Context, id string) (models.Outcome, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return models.Outcome{}, err
	}

	if s.lock != nil {
		token := utils.GenerateLockToken()
		ok, err := s.lock.AcquireSubmit(ctx, id, token)
		if err != nil {
			return models.Outcome{}, fmt.Errorf("failed to acquire submit lock: %w", err)
		}
		if !ok {
			s.log.LogSecurity("SUBMIT_LOCKED", fmt.Sprintf("Widget %s is locked by another submission", id))
			return models.Outcome{}, ErrSubmitLocked
		}
		defer func() {
			if err := s.lock.ReleaseSubmit(context.Background(), id, token); err != nil {
				s.log.Warn("REDIS", fmt.Sprintf("Failed to release submit lock of %s: %v", id, err))
			}
		}()
	}

	payCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PayTimeout)
	defer cancel()

	outcome, err := w.Pay(payCtx)
	if err != nil {
		return models.Outcome{}, err
	}
	s.log.LogPayment("OUTCOME", id, fmt.Sprintf("attempt %s finished with %s", outcome.AttemptID, outcome.Status))
	return outcome, nil
}

func (s *WidgetService) GetOutputs(ctx context.Context, id string) (models.Outputs, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return models.Outputs{}, err
	}
	return w.GetOutputs(), nil
}

func (s *WidgetService) GetView(ctx context.Context, id string) (models.View, error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return models.View{}, err
	}
	return w.View(), nil
}

// Subscribe streams the widget's events until cancel is called or the widget is destroyed.
func (s *WidgetService) Subscribe(ctx context.Context, id string) (<-chan models.WidgetEvent, func(), error) {
	w, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := w.Subscribe()
	return ch, cancel, nil
}

// DestroyWidget tears the widget down and forgets its configuration.
func (s *WidgetService) DestroyWidget(id string) error {
	if !utils.ValidWidgetID(id) {
		return ErrInvalidWidgetID
	}
	live := s.remove(id)

	err := s.store.DeleteConfig(id)
	if errors.Is(err, storage.ErrNotFound) {
		if !live {
			return ErrWidgetNotFound
		}
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete widget configuration: %w", err)
	}
	s.log.LogProcess("WIDGET", fmt.Sprintf("Widget %s destroyed", id))
	return nil
}

// HandleConfigUpdate applies a configuration received from the message bus,
// creating the widget under the given id when it is unknown.
func (s *WidgetService) HandleConfigUpdate(ctx context.Context, update *models.ConfigUpdate) error {
	if !utils.ValidWidgetID(update.WidgetID) {
		s.log.Warn("KAFKA", fmt.Sprintf("Ignoring config update with invalid widget id %q", update.WidgetID))
		return nil
	}

	_, err := s.UpdateConfig(ctx, update.WidgetID, update.Config)
	if !errors.Is(err, ErrWidgetNotFound) {
		return err
	}

	s.log.LogProcess("WIDGET", fmt.Sprintf("Creating widget %s from config update", update.WidgetID))
	mw := s.newManaged(update.WidgetID)
	s.mu.Lock()
	if existing, ok := s.widgets[update.WidgetID]; ok {
		s.mu.Unlock()
		mw.stop()
		return s.apply(ctx, existing.widget, update.Config)
	}
	s.widgets[update.WidgetID] = mw
	s.mu.Unlock()
	return s.apply(ctx, mw.widget, update.Config)
}

// Shutdown destroys every live widget. Stored configurations are kept.
func (s *WidgetService) Shutdown() {
	s.mu.Lock()
	widgets := s.widgets
	s.widgets = make(map[string]*managedWidget)
	s.mu.Unlock()

	for _, mw := range widgets {
		mw.stop()
	}
	s.log.LogProcess("WIDGET", fmt.Sprintf("Shut down %d widgets", len(widgets)))
}

// get returns a live widget, rebuilding it from the store when needed.
func (s *WidgetService) get(ctx context.Context, id string) (*widget.Widget, error) {
	if !utils.ValidWidgetID(id) {
		return nil, ErrInvalidWidgetID
	}

	s.mu.Lock()
	mw, ok := s.widgets[id]
	s.mu.Unlock()
	if ok {
		return mw.widget, nil
	}

	record, err := s.store.GetConfig(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrWidgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load widget configuration: %w", err)
	}

	s.log.LogProcess("WIDGET", fmt.Sprintf("Restoring widget %s from stored configuration", id))
	mw = s.newManaged(id)
	if err := mw.widget.Restore(ctx, record.Config); err != nil {
		s.log.Warn("WIDGET", fmt.Sprintf("%s: restored with setup error: %v", id, err))
	}

	s.mu.Lock()
	if existing, ok := s.widgets[id]; ok {
		s.mu.Unlock()
		mw.stop()
		return existing.widget, nil
	}
	s.widgets[id] = mw
	s.mu.Unlock()
	return mw.widget, nil
}

func (s *WidgetService) newManaged(id string) *managedWidget {
	outbox := newEventOutbox()
	w := widget.New(id, s.loader, widget.Options{
		MountTarget:       s.opts.MountTarget,
		ErrorDisplayDelay: s.opts.ErrorDisplayDelay,
		Notify: func() {
			hostNotifications.Inc()
			s.log.Debug("WIDGET", fmt.Sprintf("%s: host notified of status change", id))
		},
		OnStatus: func(ev models.WidgetEvent) {
			if !outbox.push(ev) {
				s.log.Warn("KAFKA", fmt.Sprintf("%s: %s event raised after shutdown, not published", id, ev.Status))
			}
		},
	}, s.log)

	mw := &managedWidget{widget: w, outbox: outbox, done: make(chan struct{})}
	go s.forwardEvents(id, outbox, mw.done)
	return mw
}

// forwardEvents publishes status changes in order until the widget is
// destroyed and its outbox is drained. A slow producer delays events but
// never loses them.
func (s *WidgetService) forwardEvents(id string, outbox *eventOutbox, done chan<- struct{}) {
	defer close(done)
	for {
		batch, ok := outbox.next()
		if !ok {
			return
		}
		if s.producer == nil {
			continue
		}
		for _, ev := range batch {
			s.publish(id, ev)
		}
	}
}

func (s *WidgetService) publish(id string, ev models.WidgetEvent) {
	err := s.producer.PublishPaymentEvent(&models.PaymentEvent{
		Type:            kafka.EventTypeForStatus(ev.Status),
		WidgetID:        id,
		AttemptID:       ev.AttemptID,
		Status:          ev.Status,
		PaymentMethodID: ev.PaymentMethodID,
		Message:         ev.Message,
		Timestamp:       ev.Timestamp,
	})
	if err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s event for widget %s: %v", ev.Status, id, err))
	}
}

func (s *WidgetService) remove(id string) bool {
	s.mu.Lock()
	mw, ok := s.widgets[id]
	delete(s.widgets, id)
	s.mu.Unlock()
	if ok {
		mw.stop()
	}
	return ok
}
