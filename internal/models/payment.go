package models

import (
	"time"
)

type PaymentStatus string

const (
	StatusNew        PaymentStatus = "new"
	StatusProcessing PaymentStatus = "processing"
	StatusSubmitted  PaymentStatus = "submitted"
	StatusCompleted  PaymentStatus = "completed"
	StatusError      PaymentStatus = "error"
)

// Terminal reports whether the status ends an attempt.
func (s PaymentStatus) Terminal() bool {
	return s == StatusSubmitted || s == StatusCompleted || s == StatusError
}

// Outcome is the result of a single payment attempt.
type Outcome struct {
	AttemptID       string        `json:"attempt_id"`
	Strategy        string        `json:"strategy,omitempty"`
	Status          PaymentStatus `json:"status"`
	PaymentMethodID string        `json:"payment_method_id,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	ErrorKind       string        `json:"error_kind,omitempty"`
}

// Outputs is the record the host reads on demand.
type Outputs struct {
	PaymentStatus   PaymentStatus `json:"PaymentStatus"`
	PaymentMethodId string        `json:"PaymentMethodId"`
}

// PaymentEvent is published downstream whenever an attempt changes status.
type PaymentEvent struct {
	Type            string        `json:"type"`
	WidgetID        string        `json:"widget_id"`
	AttemptID       string        `json:"attempt_id"`
	Status          PaymentStatus `json:"status"`
	PaymentMethodID string        `json:"payment_method_id,omitempty"`
	Message         string        `json:"message,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}
