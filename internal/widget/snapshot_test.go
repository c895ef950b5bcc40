package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"payment-widget/internal/models"
)

func TestNewSnapshotNormalizes(t *testing.T) {
	snap := NewSnapshot(models.WidgetConfig{
		ClientKey:                 "  pk_live_x ",
		PaymentIntentClientSecret: "seti_123\n",
		Customer:                  " Jane Doe ",
		CardFontSize:              20,
	})

	assert.Equal(t, "pk_live_x", snap.ClientKey)
	assert.Equal(t, "seti_123", snap.PaymentSecret)
	assert.Equal(t, "Jane Doe", snap.CustomerName)
	assert.Equal(t, 20.0, snap.CardFontSize)
	assert.Equal(t, float64(DefaultButtonFontSize), snap.ButtonFontSize)
	assert.Equal(t, float64(DefaultErrorFontSize), snap.ErrorFontSize)
}

func TestCardOptionsHidesPostalCodeUnlessEnabled(t *testing.T) {
	assert.True(t, NewSnapshot(models.WidgetConfig{}).CardOptions().HidePostalCode)
	assert.False(t, NewSnapshot(models.WidgetConfig{ZipcodeElement: true}).CardOptions().HidePostalCode)
}

func TestDiff(t *testing.T) {
	prev := NewSnapshot(models.WidgetConfig{ClientKey: "pk_test_a", CardFontSize: 20})

	t.Run("no change", func(t *testing.T) {
		changes := Diff(prev, prev)
		assert.False(t, changes.Any())
		assert.False(t, changes.CardRenderingChanged())
	})

	t.Run("card font size forces rebuild", func(t *testing.T) {
		next := NewSnapshot(models.WidgetConfig{ClientKey: "pk_test_a", CardFontSize: 24})
		changes := Diff(prev, next)
		assert.True(t, changes.CardFontSize)
		assert.True(t, changes.CardRenderingChanged())
		assert.False(t, changes.ClientKey)
	})

	t.Run("button font size does not", func(t *testing.T) {
		next := NewSnapshot(models.WidgetConfig{ClientKey: "pk_test_a", CardFontSize: 20, ButtonFontSize: 30})
		changes := Diff(prev, next)
		assert.True(t, changes.ButtonFontSize)
		assert.False(t, changes.CardRenderingChanged())
	})

	t.Run("zip code and error font size do", func(t *testing.T) {
		zip := NewSnapshot(models.WidgetConfig{ClientKey: "pk_test_a", CardFontSize: 20, ZipcodeElement: true})
		assert.True(t, Diff(prev, zip).CardRenderingChanged())
		errFont := NewSnapshot(models.WidgetConfig{ClientKey: "pk_test_a", CardFontSize: 20, ErrorFontSize: 18})
		assert.True(t, Diff(prev, errFont).CardRenderingChanged())
	})
}

func TestResetLatch(t *testing.T) {
	var latch ResetLatch

	assert.False(t, latch.Observe(false))
	assert.True(t, latch.Observe(true), "first rising edge fires")
	assert.False(t, latch.Observe(true), "held flag does not fire again")
	assert.False(t, latch.Observe(true))
	assert.False(t, latch.Observe(false), "falling edge re-arms")
	assert.True(t, latch.Observe(true), "next rising edge fires")
}
