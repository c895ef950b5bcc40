// Package stripesdk implements the widget SDK surface on top of stripe-go.
package stripesdk

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"payment-widget/internal/config"
	"payment-widget/internal/logger"
	"payment-widget/internal/models"
	"payment-widget/internal/widget"
)

var clientKeyPattern = regexp.MustCompile(`^(pk|sk|rk)_(test|live)_[A-Za-z0-9]+$`)

// Loader hands out stripe-go clients bound to a client key.
type Loader struct {
	backends *stripe.Backends
	now      func() time.Time
	log      *logger.Logger
}

// NewLoader builds a loader. An API base URL override (stripe-mock, tests)
// gets its own backend; otherwise the global stripe-go backends are used.
func NewLoader(cfg config.StripeConfig, log *logger.Logger) *Loader {
	l := &Loader{now: time.Now, log: log}
	if cfg.APIBaseURL != "" {
		l.backends = NewBackends(cfg.APIBaseURL, cfg.MaxNetworkRetries)
	}
	return l
}

// NewBackends returns stripe-go backends talking to baseURL.
func NewBackends(baseURL string, retries int64) *stripe.Backends {
	api := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(baseURL),
		MaxNetworkRetries: stripe.Int64(retries),
	})
	return &stripe.Backends{
		API:     api,
		Connect: stripe.GetBackend(stripe.ConnectBackend),
		Uploads: stripe.GetBackend(stripe.UploadsBackend),
	}
}

// AcquireClient validates the key and returns a client bound to it.
func (l *Loader) AcquireClient(ctx context.Context, clientKey string) (widget.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !clientKeyPattern.MatchString(clientKey) {
		l.log.Warn("STRIPE", "rejected malformed client key")
		return nil, fmt.Errorf("%w: %q", widget.ErrMalformedClientKey, redactKey(clientKey))
	}
	l.log.Info("STRIPE", fmt.Sprintf("Stripe client initialized for key %s", redactKey(clientKey)))
	return &Client{api: client.New(clientKey, l.backends), now: l.now, log: l.log}, nil
}

func redactKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "****"
}

// Client implements widget.Client with stripe-go.
type Client struct {
	api *client.API
	now func() time.Time
	log *logger.Logger
}

func (c *Client) CreateElementsGroup() (widget.ElementsGroup, error) {
	return &Elements{now: c.now}, nil
}

// CreatePaymentMethod tokenizes the card. Billing details are always sent.
func (c *Client) CreatePaymentMethod(ctx context.Context, params widget.PaymentMethodParams) (*widget.PaymentMethod, error) {
	details, err := cardDetails(params.Card)
	if err != nil {
		return nil, err
	}
	pmParams := cardPaymentMethodParams(details)
	pmParams.BillingDetails = &stripe.PaymentMethodBillingDetailsParams{
		Name: stripe.String(params.BillingDetails.Name),
	}
	if details.PostalCode != "" {
		pmParams.BillingDetails.Address = &stripe.AddressParams{PostalCode: stripe.String(details.PostalCode)}
	}
	pmParams.Context = ctx

	pm, err := c.api.PaymentMethods.New(pmParams)
	if err != nil {
		c.log.Error("STRIPE", fmt.Sprintf("Failed to create payment method: %v", err))
		return nil, mapError(err)
	}
	c.log.LogPayment("STRIPE", pm.ID, "Payment method created")
	return &widget.PaymentMethod{ID: pm.ID}, nil
}

// ConfirmPayment confirms a payment intent (pi_...) or setup intent (seti_...)
// with the card in the element.
func (c *Client) ConfirmPayment(ctx context.Context, secret string, params widget.ConfirmParams) (*widget.PaymentIntent, error) {
	details, err := cardDetails(params.Card)
	if err != nil {
		return nil, err
	}
	pmParams := cardPaymentMethodParams(details)
	if params.BillingDetails != nil || details.PostalCode != "" {
		pmParams.BillingDetails = &stripe.PaymentMethodBillingDetailsParams{}
		if params.BillingDetails != nil {
			pmParams.BillingDetails.Name = stripe.String(params.BillingDetails.Name)
		}
		if details.PostalCode != "" {
			pmParams.BillingDetails.Address = &stripe.AddressParams{PostalCode: stripe.String(details.PostalCode)}
		}
	}
	pmParams.Context = ctx
	pm, err := c.api.PaymentMethods.New(pmParams)
	if err != nil {
		c.log.Error("STRIPE", fmt.Sprintf("Failed to create payment method for confirmation: %v", err))
		return nil, mapError(err)
	}

	id, isSetup := parseClientSecret(secret)
	if isSetup {
		return c.confirmSetupIntent(ctx, id, secret, pm.ID)
	}
	return c.confirmPaymentIntent(ctx, id, secret, pm.ID)
}

func (c *Client) confirmPaymentIntent(ctx context.Context, id, secret, paymentMethodID string) (*widget.PaymentIntent, error) {
	params := &stripe.PaymentIntentConfirmParams{PaymentMethod: stripe.String(paymentMethodID)}
	params.Context = ctx
	if id != secret {
		params.AddExtra("client_secret", secret)
	}
	pi, err := c.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		c.log.Error("STRIPE", fmt.Sprintf("Failed to confirm payment intent: %v", err))
		return nil, mapError(err)
	}
	c.log.LogPayment("STRIPE", pi.ID, fmt.Sprintf("Payment intent confirmed with status %s", pi.Status))

	switch pi.Status {
	case stripe.PaymentIntentStatusRequiresAction:
		return nil, &widget.SDKError{Type: "invalid_request_error", Code: "authentication_required", Message: "This payment requires additional authentication."}
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		msg := "Your card was declined."
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			msg = pi.LastPaymentError.Msg
		}
		return nil, &widget.SDKError{Type: "card_error", Code: "card_declined", Message: msg}
	case stripe.PaymentIntentStatusCanceled:
		return nil, &widget.SDKError{Type: "invalid_request_error", Code: "payment_intent_unexpected_state", Message: "This payment has been canceled."}
	}
	return &widget.PaymentIntent{ID: pi.ID, Status: string(pi.Status)}, nil
}

func (c *Client) confirmSetupIntent(ctx context.Context, id, secret, paymentMethodID string) (*widget.PaymentIntent, error) {
	params := &stripe.SetupIntentConfirmParams{PaymentMethod: stripe.String(paymentMethodID)}
	params.Context = ctx
	if id != secret {
		params.AddExtra("client_secret", secret)
	}
	si, err := c.api.SetupIntents.Confirm(id, params)
	if err != nil {
		c.log.Error("STRIPE", fmt.Sprintf("Failed to confirm setup intent: %v", err))
		return nil, mapError(err)
	}
	c.log.LogPayment("STRIPE", si.ID, fmt.Sprintf("Setup intent confirmed with status %s", si.Status))

	switch si.Status {
	case stripe.SetupIntentStatusRequiresAction:
		return nil, &widget.SDKError{Type: "invalid_request_error", Code: "authentication_required", Message: "This card requires additional authentication."}
	case stripe.SetupIntentStatusRequiresPaymentMethod, stripe.SetupIntentStatusCanceled:
		return nil, &widget.SDKError{Type: "card_error", Code: "setup_intent_authentication_failure", Message: "The card could not be set up."}
	}
	return &widget.PaymentIntent{ID: si.ID, Status: string(si.Status)}, nil
}

// parseClientSecret extracts the intent id from "<id>_secret_<token>". A bare
// id is returned unchanged.
func parseClientSecret(secret string) (id string, isSetup bool) {
	id = secret
	if i := strings.Index(secret, "_secret_"); i > 0 {
		id = secret[:i]
	}
	return id, strings.HasPrefix(id, "seti_")
}

func cardDetails(el widget.CardElement) (models.CardDetails, error) {
	card, ok := el.(*CardElement)
	if !ok || card == nil {
		return models.CardDetails{}, ErrForeignElement
	}
	return card.snapshot()
}

func cardPaymentMethodParams(d models.CardDetails) *stripe.PaymentMethodParams {
	return &stripe.PaymentMethodParams{
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(digitsOnly(d.Number)),
			ExpMonth: stripe.Int64(parseStringToInt64(d.ExpMonth)),
			ExpYear:  stripe.Int64(normalizeYear(parseStringToInt64(d.ExpYear))),
			CVC:      stripe.String(digitsOnly(d.CVC)),
		},
	}
}

func normalizeYear(y int64) int64 {
	if y < 100 {
		return y + 2000
	}
	return y
}

// mapError turns a Stripe API error into the widget's SDKError; transport
// errors pass through untouched.
func mapError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		msg := stripeErr.Msg
		if msg == "" {
			msg = "The payment provider rejected the request."
		}
		return &widget.SDKError{Type: string(stripeErr.Type), Code: string(stripeErr.Code), Message: msg}
	}
	return err
}
