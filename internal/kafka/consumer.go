package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"payment-widget/internal/logger"
	"payment-widget/internal/models"
)

// ConfigHandler applies a host configuration update.
type ConfigHandler func(ctx context.Context, update *models.ConfigUpdate) error

// ConfigConsumer reads widget configuration updates from a topic.
type ConfigConsumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	log      *logger.Logger
}

func NewConfigConsumer(brokers []string, groupID, topic string, log *logger.Logger) (*ConfigConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.LogKafka("CONNECTED", topic, fmt.Sprintf("Consumer group %s joined brokers %v", groupID, brokers))
	return &ConfigConsumer{
		consumer: consumer,
		topics:   []string{topic},
		log:      log,
	}, nil
}

// ConsumeConfigs blocks until ctx is cancelled or the group fails.
func (c *ConfigConsumer) ConsumeConfigs(ctx context.Context, handler ConfigHandler) error {
	consumerHandler := &configConsumerHandler{handler: handler, log: c.log}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return nil
				}
				c.log.Error("KAFKA", fmt.Sprintf("Error consuming messages: %v", err))
				return err
			}
		}
	}
}

func (c *ConfigConsumer) Close() error {
	c.log.LogKafka("CLOSING", "consumer", "Closing Kafka consumer group")
	return c.consumer.Close()
}

type configConsumerHandler struct {
	handler ConfigHandler
	log     *logger.Logger
}

func (h *configConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *configConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim applies each update in order. Malformed messages are skipped
// and marked so they are not redelivered.
func (h *configConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var update models.ConfigUpdate
		if err := json.Unmarshal(message.Value, &update); err != nil || update.WidgetID == "" {
			h.log.Warn("KAFKA", fmt.Sprintf("Skipping malformed config message at offset %d", message.Offset))
			session.MarkMessage(message, "")
			continue
		}

		if err := h.handler(session.Context(), &update); err != nil {
			h.log.Error("KAFKA", fmt.Sprintf("Failed to apply config for widget %s: %v", update.WidgetID, err))
			continue
		}

		h.log.LogKafka("CONSUMED", message.Topic, fmt.Sprintf("Applied config for widget %s", update.WidgetID))
		session.MarkMessage(message, "")
	}

	return nil
}
