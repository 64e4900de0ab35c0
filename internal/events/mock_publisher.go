package events

import (
	"context"
	"log/slog"
	"sync"
)

// PublishedEvent is a recorded call to MockEventPublisher.Publish
type PublishedEvent struct {
	Topic   string
	Payload interface{}
}

// MockEventPublisher records events in memory
type MockEventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	err    error
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

// FailWith makes every later Publish return err
func (m *MockEventPublisher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockEventPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, PublishedEvent{Topic: topic, Payload: payload})
	if m.logger != nil {
		m.logger.Debug("Mock event published", "topic", topic)
	}
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

func (m *MockEventPublisher) GetPublishedEvents() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EventsFor returns the recorded events for one topic
func (m *MockEventPublisher) EventsFor(topic string) []PublishedEvent {
	var out []PublishedEvent
	for _, e := range m.GetPublishedEvents() {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
