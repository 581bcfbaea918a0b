package workers

import (
	"sync"

	"figures/internal/models"
)

type MockActivityLogger struct {
	mu   sync.Mutex
	Sent []models.Activity
}

func (m *MockActivityLogger) Send(activity models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, activity)
	return nil
}

func (m *MockActivityLogger) Search(_ map[string][]string) ([]map[string]any, error) {
	return nil, nil
}

func (m *MockActivityLogger) CountByDay(_ map[string][]string, _ int) ([]models.TimeSeriesPoint, error) {
	return nil, nil
}

func (m *MockActivityLogger) Close() error { return nil }

func (m *MockActivityLogger) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := make([]string, len(m.Sent))
	for i, activity := range m.Sent {
		messages[i] = activity.Message
	}
	return messages
}

type notification struct {
	To       string
	Subject  string
	Template string
	Data     any
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []notification
}

func (m *MockNotifier) NotifyFromTemplate(to string, subject string, templateName string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, notification{To: to, Subject: subject, Template: templateName, Data: data})
	return nil
}
