package models

import (
	"time"

	"github.com/uptrace/bun"
)

// WidgetConfig is the property bag supplied by the host on every update.
type WidgetConfig struct {
	ClientKey                 string  `json:"ClientKey"`
	PaymentIntentClientSecret string  `json:"PaymentIntentClientSecret"`
	ZipcodeElement            bool    `json:"ZipcodeElement"`
	AutoConfirm               bool    `json:"AutoConfirm"`
	Customer                  string  `json:"Customer"`
	CardFontSize              float64 `json:"CardFontSize"`
	ButtonFontSize            float64 `json:"ButtonFontSize"`
	ErrorFontSize             float64 `json:"ErrorFontSize"`
	Reset                     bool    `json:"Reset"`
}

// CardDetails is the raw input typed into the card element.
type CardDetails struct {
	Number     string `json:"number"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CVC        string `json:"cvc"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Empty reports whether nothing has been entered.
func (c CardDetails) Empty() bool {
	return c.Number == "" && c.ExpMonth == "" && c.ExpYear == "" && c.CVC == "" && c.PostalCode == ""
}

type EventType string

const (
	EventStatus     EventType = "status"
	EventFieldError EventType = "field_error"
)

// WidgetEvent is what presentation layers consume instead of touching the DOM.
type WidgetEvent struct {
	Type            EventType     `json:"type"`
	WidgetID        string        `json:"widget_id"`
	AttemptID       string        `json:"attempt_id,omitempty"`
	Status          PaymentStatus `json:"status"`
	PaymentMethodID string        `json:"payment_method_id,omitempty"`
	Message         string        `json:"message"`
	Busy            bool          `json:"busy"`
	SubmitEnabled   bool          `json:"submit_enabled"`
	ResultVisible   bool          `json:"result_visible"`
	Timestamp       time.Time     `json:"timestamp"`
}

// View is the full UI-facing state of a widget.
type View struct {
	Outputs
	FieldError    string `json:"field_error"`
	Busy          bool   `json:"busy"`
	SubmitEnabled bool   `json:"submit_enabled"`
	ResultVisible bool   `json:"result_visible"`
	SessionState  string `json:"session_state"`
}

// WidgetRecord is the last configuration applied to a widget, kept so an
// instance can be rebuilt after a restart.
type WidgetRecord struct {
	bun.BaseModel `bun:"table:widget_configs"`

	WidgetID  string       `json:"widget_id" bun:"widget_id,pk"`
	Config    WidgetConfig `json:"config" bun:"config,type:json"`
	CreatedAt time.Time    `json:"created_at" bun:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" bun:"updated_at"`
}

// ConfigUpdate is a host configuration delivered through the message bus.
type ConfigUpdate struct {
	WidgetID string       `json:"widget_id"`
	Config   WidgetConfig `json:"config"`
}
