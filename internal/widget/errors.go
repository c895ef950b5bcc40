package widget

import (
	"errors"
	"fmt"
)

var (
	ErrMissingClientKey     = errors.New("client key is not configured")
	ErrMalformedClientKey   = errors.New("client key is malformed")
	ErrMissingPaymentSecret = errors.New("payment intent client secret is not configured")
	ErrNotInitialized       = errors.New("payment client is not initialized")
	ErrMissingPaymentMethod = errors.New("payment method was not returned")
	ErrSessionReplaced      = errors.New("payment session was replaced")
	ErrAttemptInFlight      = errors.New("a payment attempt is already in progress")
	ErrWidgetDestroyed      = errors.New("widget has been destroyed")
)

type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindValidation    ErrorKind = "validation"
	KindConfirmation  ErrorKind = "confirmation"
	KindIntegrity     ErrorKind = "integrity"
	KindUnhandled     ErrorKind = "unhandled"
)

// Messages shown in the inline error region.
const (
	MsgMissingConfiguration = "Missing configuration: a client key and a payment intent client secret are required"
	MsgMissingClientKey     = "Missing configuration: a client key is required"
	MsgSetupPrefix          = "There was an error setting up payment: "
	MsgIntegrity            = "Unexpected error: the payment method could not be created"
	MsgUnhandled            = "Component not initialized correctly"
	MsgSessionReplaced      = "The payment form was reconfigured while the payment was in progress"
)

// PaymentError is the terminal error of an attempt or a configuration step.
type PaymentError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Err }

func newPaymentError(kind ErrorKind, msg string, err error) *PaymentError {
	return &PaymentError{Kind: kind, Message: msg, Err: err}
}

// asPaymentError converts any failure into a PaymentError. Anything not
// already classified becomes an unhandled error with the generic message.
func asPaymentError(err error) *PaymentError {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe
	}
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		if sdkErr.Type == "validation_error" {
			return newPaymentError(KindValidation, sdkErr.Message, err)
		}
		return newPaymentError(KindConfirmation, sdkErr.Message, err)
	}
	return newPaymentError(KindUnhandled, MsgUnhandled, err)
}
