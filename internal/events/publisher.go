package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// Topics, relative to the configured prefix
const (
	TopicSittingCompleted   = "sitting.completed"
	TopicAISessionCompleted = "ai_session.completed"
	TopicQuizCreated        = "quiz.created"
)

const (
	MetadataRequestID = "request_id"
	MetadataEventType = "event_type"
)

// EventPublisher publishes domain events after their transaction commits
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

// ===== WATERMILL PUBLISHER =====

type WatermillPublisher struct {
	publisher message.Publisher
	prefix    string
	logger    *slog.Logger
}

// NewEventPublisher uses Kafka when brokers are configured and an in-process
// gochannel otherwise.
func NewEventPublisher(cfg config.EventsConfig, logger *slog.Logger) (EventPublisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("Kafka brokers not configured, publishing events in-process")
		return NewWatermillPublisher(gochannel.NewGoChannel(gochannel.Config{}, wmLogger), cfg.TopicPrefix, logger), nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	logger.Info("Publishing events to Kafka", "brokers", cfg.KafkaBrokers)
	return NewWatermillPublisher(publisher, cfg.TopicPrefix, logger), nil
}

func NewWatermillPublisher(publisher message.Publisher, prefix string, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		prefix:    prefix,
		logger:    logger,
	}
}

// FullTopic prepends the configured prefix
func FullTopic(prefix, topic string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}

func (p *WatermillPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set(MetadataEventType, topic)
	if requestID := utils.RequestIDFromContext(ctx); requestID != "" {
		msg.Metadata.Set(MetadataRequestID, requestID)
	}
	msg.SetContext(ctx)

	fullTopic := FullTopic(p.prefix, topic)
	if err := p.publisher.Publish(fullTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", fullTopic, err)
	}

	p.logger.Debug("Event published", "topic", fullTopic, "message_id", msg.UUID)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// SafePublish publishes and only logs failures; events never fail a request.
func SafePublish(ctx context.Context, publisher EventPublisher, topic string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, topic, payload); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"error", err,
			"topic", topic)
	}
}

// ===== PAYLOADS =====

type SittingCompletedEvent struct {
	SittingID   uint      `json:"sitting_id"`
	QuizID      uint      `json:"quiz_id"`
	CourseID    uint      `json:"course_id"`
	UserID      string    `json:"user_id"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	Percent     int       `json:"percent"`
	Passed      bool      `json:"passed"`
	Retained    bool      `json:"retained"`
	CompletedAt time.Time `json:"completed_at"`
}

type AISessionCompletedEvent struct {
	SessionID    uint      `json:"session_id"`
	ConfigID     uint      `json:"config_id"`
	CourseID     uint      `json:"course_id"`
	UserID       string    `json:"user_id"`
	Score        int       `json:"score"`
	Answered     int       `json:"answered"`
	Percent      int       `json:"percent"`
	UsedFallback bool      `json:"used_fallback"`
	CompletedAt  time.Time `json:"completed_at"`
}

type QuizCreatedEvent struct {
	QuizID    uint      `json:"quiz_id"`
	CourseID  uint      `json:"course_id"`
	Title     string    `json:"title"`
	CreatedBy string    `json:"created_by"`
	Draft     bool      `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
}
