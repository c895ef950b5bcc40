package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"payment-widget/internal/logger"
	"payment-widget/internal/models"
)

type SessionState int

const (
	Uninitialized SessionState = iota
	Initializing
	Ready
)

func (s SessionState) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Session is a read-only borrow of the live SDK handles. Generation changes
// whenever any handle is recreated or torn down.
type Session struct {
	Client     Client
	Group      ElementsGroup
	Card       CardElement
	Generation uint64
}

type initCall struct {
	done chan struct{}
	err  error
}

// LifecycleManager owns the client, the elements group and the card element.
// No lock is held while the client is being acquired.
type LifecycleManager struct {
	mu      sync.Mutex
	loader  Loader
	target  string
	onField func(string)
	log     *logger.Logger

	state   SessionState
	key     string
	options CardOptions
	client  Client
	group   ElementsGroup
	card    CardElement
	gen     uint64
	pending *initCall
}

// NewLifecycleManager creates a manager that mounts card elements at target and
// republishes card validation errors through onFieldError.
func NewLifecycleManager(loader Loader, target string, onFieldError func(string), log *logger.Logger) *LifecycleManager {
	if onFieldError == nil {
		onFieldError = func(string) {}
	}
	return &LifecycleManager{
		loader:  loader,
		target:  target,
		onField: onFieldError,
		log:     log,
	}
}

func (m *LifecycleManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply reconciles the session with a new snapshot.
func (m *LifecycleManager) Apply(ctx context.Context, snap Snapshot, changes ChangeSet) error {
	m.mu.Lock()
	if m.key != snap.ClientKey {
		m.teardownLocked()
		m.key = snap.ClientKey
		m.options = snap.CardOptions()
		empty := m.key == ""
		m.mu.Unlock()
		if empty {
			m.log.Info("LIFECYCLE", "client key cleared, session torn down")
			return nil
		}
		return m.initialize(ctx)
	}

	if !changes.CardRenderingChanged() {
		m.mu.Unlock()
		return nil
	}
	m.options = snap.CardOptions()
	if m.state != Ready {
		// picked up by the next initialization
		m.mu.Unlock()
		return nil
	}
	defer m.mu.Unlock()
	m.log.Info("LIFECYCLE", "card rendering options changed, recreating card element")
	m.card.Destroy()
	m.card = nil
	m.gen++
	card, err := m.createCardLocked(m.group)
	if err != nil {
		m.teardownLocked()
		return newPaymentError(KindConfiguration, MsgSetupPrefix+err.Error(), err)
	}
	m.card = card
	return nil
}

// EnsureReady returns the live session, initializing it synchronously if needed.
func (m *LifecycleManager) EnsureReady(ctx context.Context) (Session, error) {
	if s, ok := m.Session(); ok {
		return s, nil
	}
	if err := m.initialize(ctx); err != nil {
		return Session{}, err
	}
	s, ok := m.Session()
	if !ok {
		return Session{}, ErrNotInitialized
	}
	return s, nil
}

// Session borrows the current handles if the session is ready.
func (m *LifecycleManager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Ready || m.card == nil {
		return Session{}, false
	}
	return Session{Client: m.client, Group: m.group, Card: m.card, Generation: m.gen}, true
}

// IsCurrent reports whether a borrowed session is still the active one.
func (m *LifecycleManager) IsCurrent(s Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Ready && m.gen == s.Generation
}

func (m *LifecycleManager) initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Ready {
		m.mu.Unlock()
		return nil
	}
	if m.key == "" {
		m.mu.Unlock()
		return newPaymentError(KindConfiguration, MsgMissingClientKey, ErrMissingClientKey)
	}
	if call := m.pending; call != nil {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &initCall{done: make(chan struct{})}
	m.pending = call
	m.state = Initializing
	m.gen++
	gen := m.gen
	key := m.key
	m.mu.Unlock()

	m.log.LogProcess("LIFECYCLE", "acquiring payment client")
	client, err := m.loader.AcquireClient(ctx, key)

	m.mu.Lock()
	call.err = m.finishInitLocked(gen, client, err)
	if m.pending == call {
		m.pending = nil
	}
	m.mu.Unlock()
	close(call.done)
	return call.err
}

func (m *LifecycleManager) finishInitLocked(gen uint64, client Client, acquireErr error) error {
	if gen != m.gen {
		// a teardown or key change happened while acquiring
		return ErrSessionReplaced
	}
	if acquireErr != nil {
		m.state = Uninitialized
		m.log.Error("LIFECYCLE", fmt.Sprintf("client acquisition failed: %v", acquireErr))
		return setupError(acquireErr)
	}
	group, err := client.CreateElementsGroup()
	if err != nil {
		m.state = Uninitialized
		return setupError(err)
	}
	card, err := m.createCardLocked(group)
	if err != nil {
		m.state = Uninitialized
		return setupError(err)
	}
	m.client, m.group, m.card = client, group, card
	m.state = Ready
	m.log.LogProcess("LIFECYCLE", "payment session ready")
	return nil
}

func setupError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newPaymentError(KindUnhandled, MsgUnhandled, err)
	}
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		return newPaymentError(KindConfiguration, MsgSetupPrefix+sdkErr.Message, err)
	}
	return newPaymentError(KindConfiguration, MsgSetupPrefix+err.Error(), err)
}

func (m *LifecycleManager) createCardLocked(group ElementsGroup) (CardElement, error) {
	card, err := group.CreateCardElement(m.options)
	if err != nil {
		return nil, err
	}
	onField := m.onField
	card.OnChange(func(ev ChangeEvent) {
		onField(ev.Error)
	})
	if err := card.Mount(m.target); err != nil {
		card.Destroy()
		return nil, err
	}
	return card, nil
}

// Teardown destroys the card element, then drops the group and the client.
// It is a no-op when nothing is live.
func (m *LifecycleManager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

func (m *LifecycleManager) teardownLocked() {
	if m.state == Uninitialized && m.pending == nil {
		return
	}
	if m.card != nil {
		m.card.Destroy()
		m.card = nil
	}
	m.group = nil
	m.client = nil
	m.state = Uninitialized
	m.pending = nil
	m.gen++
	m.log.Info("LIFECYCLE", "payment session torn down")
}

// ClearCard removes any input from the card element.
func (m *LifecycleManager) ClearCard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.card != nil {
		m.card.Clear()
	}
}

// EnterCard forwards host-supplied card input to the mounted card element.
func (m *LifecycleManager) EnterCard(details models.CardDetails) error {
	m.mu.Lock()
	card := m.card
	m.mu.Unlock()
	if card == nil {
		return ErrNotInitialized
	}
	card.Update(details)
	return nil
}
