package widget

import (
	"strings"

	"payment-widget/internal/models"
)

const (
	DefaultCardFontSize   = 16
	DefaultButtonFontSize = 16
	DefaultErrorFontSize  = 14
)

// Snapshot is an immutable copy of the host configuration for one update cycle.
type Snapshot struct {
	ClientKey      string
	PaymentSecret  string
	ZipCodeEnabled bool
	AutoConfirm    bool
	CustomerName   string
	CardFontSize   float64
	ButtonFontSize float64
	ErrorFontSize  float64
	ResetRequested bool
}

// NewSnapshot normalizes a host configuration bag.
func NewSnapshot(cfg models.WidgetConfig) Snapshot {
	return Snapshot{
		ClientKey:      strings.TrimSpace(cfg.ClientKey),
		PaymentSecret:  strings.TrimSpace(cfg.PaymentIntentClientSecret),
		ZipCodeEnabled: cfg.ZipcodeElement,
		AutoConfirm:    cfg.AutoConfirm,
		CustomerName:   strings.TrimSpace(cfg.Customer),
		CardFontSize:   orDefault(cfg.CardFontSize, DefaultCardFontSize),
		ButtonFontSize: orDefault(cfg.ButtonFontSize, DefaultButtonFontSize),
		ErrorFontSize:  orDefault(cfg.ErrorFontSize, DefaultErrorFontSize),
		ResetRequested: cfg.Reset,
	}
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

// CardOptions derives the card rendering options.
func (s Snapshot) CardOptions() CardOptions {
	return CardOptions{
		HidePostalCode: !s.ZipCodeEnabled,
		FontSize:       s.CardFontSize,
		ErrorFontSize:  s.ErrorFontSize,
	}
}

// ChangeSet flags the fields that differ between two snapshots.
type ChangeSet struct {
	ClientKey      bool
	PaymentSecret  bool
	ZipCodeEnabled bool
	AutoConfirm    bool
	CustomerName   bool
	CardFontSize   bool
	ButtonFontSize bool
	ErrorFontSize  bool
	ResetRequested bool
}

func Diff(prev, next Snapshot) ChangeSet {
	return ChangeSet{
		ClientKey:      prev.ClientKey != next.ClientKey,
		PaymentSecret:  prev.PaymentSecret != next.PaymentSecret,
		ZipCodeEnabled: prev.ZipCodeEnabled != next.ZipCodeEnabled,
		AutoConfirm:    prev.AutoConfirm != next.AutoConfirm,
		CustomerName:   prev.CustomerName != next.CustomerName,
		CardFontSize:   prev.CardFontSize != next.CardFontSize,
		ButtonFontSize: prev.ButtonFontSize != next.ButtonFontSize,
		ErrorFontSize:  prev.ErrorFontSize != next.ErrorFontSize,
		ResetRequested: prev.ResetRequested != next.ResetRequested,
	}
}

// CardRenderingChanged reports whether the card element must be rebuilt.
func (c ChangeSet) CardRenderingChanged() bool {
	return c.ZipCodeEnabled || c.CardFontSize || c.ErrorFontSize
}

// Any reports whether anything changed at all.
func (c ChangeSet) Any() bool {
	return c != ChangeSet{}
}

// ResetLatch turns a level-held reset flag into a single action. It re-arms
// only after the flag has been seen false.
type ResetLatch struct {
	fired bool
}

// Observe returns true exactly once per false-to-true transition.
func (l *ResetLatch) Observe(requested bool) bool {
	if !requested {
		l.fired = false
		return false
	}
	if l.fired {
		return false
	}
	l.fired = true
	return true
}
