package storage

import (
	"sort"
	"sync"
	"time"

	"payment-widget/internal/models"
)

type InMemoryStore struct {
	records map[string]models.WidgetRecord
	mutex   sync.RWMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]models.WidgetRecord),
	}
}

// SaveConfig inserts or replaces a record, keeping its original creation time.
func (s *InMemoryStore) SaveConfig(record *models.WidgetRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now().UTC()
	stored := *record
	stored.UpdatedAt = now
	if existing, ok := s.records[record.WidgetID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	s.records[record.WidgetID] = stored
	return nil
}

func (s *InMemoryStore) GetConfig(widgetID string) (*models.WidgetRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	record, exists := s.records[widgetID]
	if !exists {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) DeleteConfig(widgetID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.records[widgetID]; !exists {
		return ErrNotFound
	}
	delete(s.records, widgetID)
	return nil
}

// ListConfigs returns all records, oldest first.
func (s *InMemoryStore) ListConfigs() ([]*models.WidgetRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := make([]*models.WidgetRecord, 0, len(s.records))
	for _, r := range s.records {
		r := r
		records = append(records, &r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}
