package widget

import (
	"context"

	"payment-widget/internal/models"
)

// Loader acquires a payment client bound to a client key.
type Loader interface {
	AcquireClient(ctx context.Context, clientKey string) (Client, error)
}

// Client is the payment SDK handle.
type Client interface {
	CreateElementsGroup() (ElementsGroup, error)
	// ConfirmPayment confirms the payment identified by secret. Provider-reported
	// failures are returned as *SDKError.
	ConfirmPayment(ctx context.Context, secret string, params ConfirmParams) (*PaymentIntent, error)
	CreatePaymentMethod(ctx context.Context, params PaymentMethodParams) (*PaymentMethod, error)
}

// ElementsGroup scopes the rendered input elements.
type ElementsGroup interface {
	CreateCardElement(opts CardOptions) (CardElement, error)
	Submit(ctx context.Context) error
}

// CardElement captures card details without exposing them to the widget.
type CardElement interface {
	Mount(target string) error
	OnChange(handler func(ChangeEvent))
	Update(details models.CardDetails)
	Clear()
	Destroy()
}

// CardOptions are the rendering options that force a card element rebuild.
type CardOptions struct {
	HidePostalCode bool
	FontSize       float64
	ErrorFontSize  float64
}

// ChangeEvent is emitted by the card element on every input change.
type ChangeEvent struct {
	Empty    bool
	Complete bool
	// Error is empty when the current input is valid.
	Error string
}

type BillingDetails struct {
	Name string
}

type ConfirmParams struct {
	Card CardElement
	// BillingDetails is nil when no billing details should be sent.
	BillingDetails *BillingDetails
}

type PaymentMethodParams struct {
	Card           CardElement
	BillingDetails BillingDetails
}

type PaymentIntent struct {
	ID     string
	Status string
}

type PaymentMethod struct {
	ID string
}

// SDKError is a failure reported by the payment provider, as opposed to a
// transport failure.
type SDKError struct {
	Type    string
	Code    string
	Message string
}

func (e *SDKError) Error() string {
	if e.Code != "" {
		return e.Type + "/" + e.Code + ": " + e.Message
	}
	return e.Type + ": " + e.Message
}
