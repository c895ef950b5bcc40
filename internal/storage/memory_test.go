package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-widget/internal/models"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.GetConfig("w-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveConfig(&models.WidgetRecord{
		WidgetID: "w-1",
		Config:   models.WidgetConfig{ClientKey: "pk_test_a", AutoConfirm: true},
	}))
	first, err := store.GetConfig("w-1")
	require.NoError(t, err)
	assert.Equal(t, "pk_test_a", first.Config.ClientKey)
	assert.False(t, first.CreatedAt.IsZero())

	time.Sleep(time.Millisecond)
	require.NoError(t, store.SaveConfig(&models.WidgetRecord{
		WidgetID: "w-1",
		Config:   models.WidgetConfig{ClientKey: "pk_test_b"},
	}))
	second, err := store.GetConfig("w-1")
	require.NoError(t, err)
	assert.Equal(t, "pk_test_b", second.Config.ClientKey)
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "creation time is kept on update")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	store := NewInMemoryStore()
	record := &models.WidgetRecord{WidgetID: "w-1", Config: models.WidgetConfig{Customer: "Jane Doe"}}
	require.NoError(t, store.SaveConfig(record))

	record.Config.Customer = "changed"
	got, err := store.GetConfig("w-1")
	require.NoError(t, err)
	got.Config.Customer = "changed again"

	again, err := store.GetConfig("w-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", again.Config.Customer)
}

func TestInMemoryStoreDeleteAndList(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.SaveConfig(&models.WidgetRecord{WidgetID: "w-1"}))
	time.Sleep(time.Millisecond)
	require.NoError(t, store.SaveConfig(&models.WidgetRecord{WidgetID: "w-2"}))

	records, err := store.ListConfigs()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "w-1", records[0].WidgetID)

	require.NoError(t, store.DeleteConfig("w-1"))
	assert.ErrorIs(t, store.DeleteConfig("w-1"), ErrNotFound)

	records, err = store.ListConfigs()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "w-2", records[0].WidgetID)
}
