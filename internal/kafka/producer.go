package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"payment-widget/internal/logger"
	"payment-widget/internal/models"
)

// Event types published for widget payment attempts.
const (
	EventPaymentProcessing = "payment.processing"
	EventPaymentCompleted  = "payment.completed"
	EventPaymentSubmitted  = "payment.submitted"
	EventPaymentFailed     = "payment.failed"
	EventPaymentReset      = "payment.reset"
)

type Producer struct {
	producer sarama.SyncProducer
	mockMode bool
	log      *logger.Logger
}

func NewProducer(brokers []string, mockMode bool, log *logger.Logger) (*Producer, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "Running in mock mode - no actual Kafka connection")
		return &Producer{
			producer: nil,
			mockMode: true,
			log:      log,
		}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return NewProducerWithClient(producer, log), nil
}

// NewProducerWithClient wraps an existing sync producer.
func NewProducerWithClient(producer sarama.SyncProducer, log *logger.Logger) *Producer {
	return &Producer{producer: producer, log: log}
}

// EventTypeForStatus maps a payment status to the event published for it.
func EventTypeForStatus(status models.PaymentStatus) string {
	switch status {
	case models.StatusProcessing:
		return EventPaymentProcessing
	case models.StatusCompleted:
		return EventPaymentCompleted
	case models.StatusSubmitted:
		return EventPaymentSubmitted
	case models.StatusError:
		return EventPaymentFailed
	default:
		return EventPaymentReset
	}
}

func (p *Producer) PublishPaymentEvent(event *models.PaymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.getTopicForEvent(event.Type)

	if p.mockMode {
		p.log.LogKafka("MOCK_PUBLISH", topic, fmt.Sprintf("Mock publishing event: %s for widget: %s", event.Type, event.WidgetID))
		p.log.LogKafka("MOCK_DATA", topic, string(data))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.WidgetID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("Failed to send message to topic %s: %v", topic, err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.LogKafka("PUBLISHED", topic, fmt.Sprintf("Message sent to partition %d at offset %d for widget %s", partition, offset, event.WidgetID))
	return nil
}

func (p *Producer) getTopicForEvent(eventType string) string {
	switch eventType {
	case EventPaymentSubmitted:
		return "payment-method-submitted"
	case EventPaymentCompleted:
		return "payment-completed"
	case EventPaymentFailed:
		return "payment-failed"
	default:
		return "widget-payment-events"
	}
}

func (p *Producer) Close() error {
	if p.mockMode {
		p.log.LogKafka("MOCK_CLOSE", "producer", "Mock producer closed")
		return nil
	}

	if p.producer != nil {
		p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
		return p.producer.Close()
	}
	return nil
}
