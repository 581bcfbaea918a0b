package services

import (
	"encoding/json"
	"sync"
	"time"

	"figures/internal/activity"
	"figures/internal/cache"
	"figures/internal/models"
)

// --- Mock Activity Logger ---

type MockActivityLogger struct {
	mu       sync.Mutex
	Sent     []models.Activity
	Criteria map[string][]string
	Entries  []map[string]any
	Points   []models.TimeSeriesPoint
}

func (m *MockActivityLogger) Send(activity models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, activity)
	return nil
}

func (m *MockActivityLogger) Search(criteria map[string][]string) ([]map[string]any, error) {
	m.Criteria = criteria
	return m.Entries, nil
}

func (m *MockActivityLogger) CountByDay(criteria map[string][]string, _ int) ([]models.TimeSeriesPoint, error) {
	m.Criteria = criteria
	return m.Points, nil
}

func (m *MockActivityLogger) Close() error { return nil }

var _ activity.IActivityLogger = (*MockActivityLogger)(nil)

// --- Mock Cache ---

type MockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	Gets    int
}

func (m *MockCache) RegisterInstance(_ string) error                        { return nil }
func (m *MockCache) PruneInstances() error                                  { return nil }
func (m *MockCache) StartIdentityTicker(_ string)                           {}
func (m *MockCache) GetRateLimit(_ string, _ int) (int, error)              { return 0, nil }
func (m *MockCache) TryAcquireLock(_ string, _ string, _ int) (bool, error) { return true, nil }
func (m *MockCache) RefreshLock(_ string, _ string, _ int) (bool, error)    { return true, nil }
func (m *MockCache) Close() error                                           { return nil }

func (m *MockCache) GetJSON(key string, target any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, target)
}

func (m *MockCache) SetJSON(key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = raw
	return nil
}

var _ cache.ICache = (*MockCache)(nil)
