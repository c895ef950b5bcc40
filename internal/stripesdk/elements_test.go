package stripesdk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-widget/internal/models"
	"payment-widget/internal/widget"
)

var validCard = models.CardDetails{Number: "4242424242424242", ExpMonth: "12", ExpYear: "34", CVC: "123"}

func newGroup() *Elements {
	return &Elements{now: func() time.Time { return time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC) }}
}

func mountedCard(t *testing.T, g *Elements, opts widget.CardOptions) *CardElement {
	t.Helper()
	el, err := g.CreateCardElement(opts)
	require.NoError(t, err)
	require.NoError(t, el.Mount("#card-element"))
	return el.(*CardElement)
}

func TestCardElementChangeEvents(t *testing.T) {
	card := mountedCard(t, newGroup(), widget.CardOptions{HidePostalCode: true})
	var events []widget.ChangeEvent
	card.OnChange(func(ev widget.ChangeEvent) { events = append(events, ev) })

	card.Update(models.CardDetails{Number: "4242"})
	card.Update(validCard)
	card.Clear()

	require.Len(t, events, 3)
	assert.Equal(t, msgNumberIncomplete, events[0].Error)
	assert.True(t, events[1].Complete)
	assert.Empty(t, events[1].Error)
	assert.True(t, events[2].Empty)
}

func TestCardElementRequiresPostalCodeWhenShown(t *testing.T) {
	card := mountedCard(t, newGroup(), widget.CardOptions{})
	var last widget.ChangeEvent
	card.OnChange(func(ev widget.ChangeEvent) { last = ev })

	card.Update(validCard)
	assert.Equal(t, msgPostalIncomplete, last.Error)
}

func TestCardElementMount(t *testing.T) {
	g := newGroup()
	el, err := g.CreateCardElement(widget.CardOptions{})
	require.NoError(t, err)

	assert.Error(t, el.Mount(" "))
	require.NoError(t, el.Mount("#card-element"))
	assert.Equal(t, "#card-element", el.(*CardElement).Target())

	el.Destroy()
	assert.ErrorIs(t, el.Mount("#card-element"), ErrElementDestroyed)
}

func TestOneLiveCardPerGroup(t *testing.T) {
	g := newGroup()
	first, err := g.CreateCardElement(widget.CardOptions{})
	require.NoError(t, err)

	_, err = g.CreateCardElement(widget.CardOptions{})
	assert.Error(t, err)

	first.Destroy()
	second, err := g.CreateCardElement(widget.CardOptions{FontSize: 24})
	require.NoError(t, err)
	assert.Equal(t, 24.0, second.(*CardElement).Options().FontSize)
}

func TestElementsSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("no card", func(t *testing.T) {
		var sdkErr *widget.SDKError
		require.True(t, errors.As(newGroup().Submit(ctx), &sdkErr))
	})

	t.Run("empty card", func(t *testing.T) {
		g := newGroup()
		mountedCard(t, g, widget.CardOptions{HidePostalCode: true})
		var sdkErr *widget.SDKError
		require.True(t, errors.As(g.Submit(ctx), &sdkErr))
		assert.Equal(t, "validation_error", sdkErr.Type)
		assert.Equal(t, msgNumberIncomplete, sdkErr.Message)
	})

	t.Run("unmounted card", func(t *testing.T) {
		g := newGroup()
		_, err := g.CreateCardElement(widget.CardOptions{})
		require.NoError(t, err)
		assert.ErrorIs(t, g.Submit(ctx), ErrNotMounted)
	})

	t.Run("valid card", func(t *testing.T) {
		g := newGroup()
		card := mountedCard(t, g, widget.CardOptions{HidePostalCode: true})
		card.Update(validCard)
		assert.NoError(t, g.Submit(ctx))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, newGroup().Submit(cctx), context.Canceled)
	})
}
