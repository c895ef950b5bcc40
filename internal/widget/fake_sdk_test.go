package widget

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"payment-widget/internal/models"
)

// MockLoader implements Loader for testing
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) AcquireClient(ctx context.Context, clientKey string) (Client, error) {
	args := m.Called(ctx, clientKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Client), args.Error(1)
}

// MockClient implements Client for testing. Elements groups are real fakes so
// the card element can be inspected.
type MockClient struct {
	mock.Mock

	mu       sync.Mutex
	groups   []*fakeGroup
	groupErr error
	cardErr  error
}

func (m *MockClient) CreateElementsGroup() (ElementsGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.groupErr != nil {
		return nil, m.groupErr
	}
	g := &fakeGroup{cardErr: m.cardErr}
	m.groups = append(m.groups, g)
	return g, nil
}

func (m *MockClient) ConfirmPayment(ctx context.Context, secret string, params ConfirmParams) (*PaymentIntent, error) {
	args := m.Called(ctx, secret, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentIntent), args.Error(1)
}

func (m *MockClient) CreatePaymentMethod(ctx context.Context, params PaymentMethodParams) (*PaymentMethod, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentMethod), args.Error(1)
}

func (m *MockClient) lastGroup() *fakeGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.groups) == 0 {
		return nil
	}
	return m.groups[len(m.groups)-1]
}

type fakeGroup struct {
	mu        sync.Mutex
	cards     []*fakeCard
	cardErr   error
	submitErr error
	submits   int
	onSubmit  func()
}

func (g *fakeGroup) CreateCardElement(opts CardOptions) (CardElement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cardErr != nil {
		return nil, g.cardErr
	}
	c := &fakeCard{options: opts}
	g.cards = append(g.cards, c)
	return c, nil
}

func (g *fakeGroup) Submit(ctx context.Context) error {
	g.mu.Lock()
	g.submits++
	hook := g.onSubmit
	err := g.submitErr
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (g *fakeGroup) submitCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submits
}

func (g *fakeGroup) cardCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cards)
}

func (g *fakeGroup) card(i int) *fakeCard {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cards[i]
}

type fakeCard struct {
	mu        sync.Mutex
	options   CardOptions
	target    string
	handlers  []func(ChangeEvent)
	details   models.CardDetails
	clears    int
	destroyed bool
}

func (c *fakeCard) Mount(target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	return nil
}

func (c *fakeCard) OnChange(handler func(ChangeEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

func (c *fakeCard) Update(details models.CardDetails) {
	c.mu.Lock()
	c.details = details
	c.mu.Unlock()
}

func (c *fakeCard) Clear() {
	c.mu.Lock()
	c.details = models.CardDetails{}
	c.clears++
	c.mu.Unlock()
}

func (c *fakeCard) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()
}

// emit simulates a change event raised by the card element.
func (c *fakeCard) emit(ev ChangeEvent) {
	c.mu.Lock()
	handlers := append(([]func(ChangeEvent))(nil), c.handlers...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (c *fakeCard) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *fakeCard) state() (models.CardDetails, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.details, c.clears
}
