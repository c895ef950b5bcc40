package storage

import (
	"errors"

	"payment-widget/internal/models"
)

var ErrNotFound = errors.New("widget configuration not found")

// Store persists the last configuration applied to each widget.
type Store interface {
	SaveConfig(record *models.WidgetRecord) error
	GetConfig(widgetID string) (*models.WidgetRecord, error)
	DeleteConfig(widgetID string) error
	ListConfigs() ([]*models.WidgetRecord, error)
}
