package stripesdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"payment-widget/internal/models"
	"payment-widget/internal/widget"
)

var (
	ErrElementDestroyed = errors.New("card element has been destroyed")
	ErrNotMounted       = errors.New("card element is not mounted")
	ErrForeignElement   = errors.New("card element was not created by this client")
)

// Elements groups the card elements of one client.
type Elements struct {
	mu       sync.Mutex
	elements []*CardElement
	now      func() time.Time
}

func (e *Elements) CreateCardElement(opts widget.CardOptions) (widget.CardElement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	live := e.elements[:0]
	for _, el := range e.elements {
		if !el.isDestroyed() {
			live = append(live, el)
		}
	}
	e.elements = live
	if len(e.elements) > 0 {
		return nil, fmt.Errorf("a card element already exists in this group")
	}
	el := &CardElement{options: opts, now: e.now}
	e.elements = append(e.elements, el)
	return el, nil
}

// Submit validates every live element of the group.
func (e *Elements) Submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	elements := append([]*CardElement(nil), e.elements...)
	e.mu.Unlock()

	submitted := 0
	for _, el := range elements {
		if el.isDestroyed() {
			continue
		}
		if _, err := el.snapshot(); err != nil {
			return err
		}
		submitted++
	}
	if submitted == 0 {
		return &widget.SDKError{Type: "invalid_request_error", Message: "No card element is mounted."}
	}
	return nil
}

// CardElement holds card input entered through the host.
type CardElement struct {
	mu        sync.Mutex
	options   widget.CardOptions
	target    string
	details   models.CardDetails
	listeners []func(widget.ChangeEvent)
	destroyed bool
	now       func() time.Time
}

func (c *CardElement) Mount(target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrElementDestroyed
	}
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("invalid mount target %q", target)
	}
	c.target = target
	return nil
}

func (c *CardElement) OnChange(handler func(widget.ChangeEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, handler)
}

// Update replaces the current input and notifies change listeners.
func (c *CardElement) Update(details models.CardDetails) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.details = details
	ev := c.evaluateLocked()
	listeners := append(([]func(widget.ChangeEvent))(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

func (c *CardElement) Clear() {
	c.Update(models.CardDetails{})
}

func (c *CardElement) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	c.listeners = nil
	c.details = models.CardDetails{}
}

func (c *CardElement) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *CardElement) Options() widget.CardOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options
}

func (c *CardElement) isDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *CardElement) evaluateLocked() widget.ChangeEvent {
	if c.details.Empty() {
		return widget.ChangeEvent{Empty: true}
	}
	msg := validateCard(c.details, !c.options.HidePostalCode, c.clock())
	return widget.ChangeEvent{Complete: msg == "", Error: msg}
}

func (c *CardElement) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// snapshot returns the card input if it is mounted, complete and valid.
func (c *CardElement) snapshot() (models.CardDetails, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return models.CardDetails{}, ErrElementDestroyed
	}
	if c.target == "" {
		return models.CardDetails{}, ErrNotMounted
	}
	if c.details.Empty() {
		return models.CardDetails{}, &widget.SDKError{Type: "validation_error", Code: "incomplete_number", Message: msgNumberIncomplete}
	}
	if msg := validateCard(c.details, !c.options.HidePostalCode, c.clock()); msg != "" {
		return models.CardDetails{}, &widget.SDKError{Type: "validation_error", Message: msg}
	}
	return c.details, nil
}
