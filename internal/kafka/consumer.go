package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// PositionHandler applies broker fills to the portfolio
type PositionHandler interface {
	CreatePosition(ctx context.Context, in models.PositionInput) (*models.EnrichedPosition, error)
	ClosePositionsBySymbol(ctx context.Context, symbol string, price float64) (int, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer handles broker fill events. An opened event creates a position;
// a closed event closes every open position in the symbol.
type Consumer struct {
	reader  messageReader
	handler PositionHandler
	log     zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for broker events
func NewConsumer(brokers []string, topic, groupID string, handler PositionHandler, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:  reader,
		handler: handler,
		log:     log.With().Str("component", "kafka-consumer").Logger(),
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.log.Info().Msg("Kafka consumer shutting down")
					return c.reader.Close()
				}
				c.log.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Warn().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Skipping message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.BrokerEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal broker event: %w", err)
	}

	switch event.EventType {
	case models.BrokerEventPositionOpened:
		in, err := toPositionInput(event.Data)
		if err != nil {
			return err
		}
		p, err := c.handler.CreatePosition(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to create position: %w", err)
		}
		c.log.Info().
			Str("source", event.Source).
			Str("symbol", p.Symbol).
			Str("position_id", p.ID).
			Msg("Opened position from broker fill")
		return nil

	case models.BrokerEventPositionClosed:
		price, err := parseNumber("average_price", event.Data.AveragePrice)
		if err != nil {
			return err
		}
		n, err := c.handler.ClosePositionsBySymbol(ctx, event.Data.Symbol, price)
		if err != nil {
			return fmt.Errorf("failed to close positions: %w", err)
		}
		c.log.Info().
			Str("source", event.Source).
			Str("symbol", event.Data.Symbol).
			Int("closed", n).
			Msg("Closed positions from broker fill")
		return nil

	default:
		c.log.Debug().Str("event_type", event.EventType).Msg("Ignoring event type")
		return nil
	}
}

func toPositionInput(data models.BrokerEventData) (models.PositionInput, error) {
	quantity, err := parseNumber("quantity", data.Quantity)
	if err != nil {
		return models.PositionInput{}, err
	}
	price, err := parseNumber("average_price", data.AveragePrice)
	if err != nil {
		return models.PositionInput{}, err
	}

	return models.PositionInput{
		Symbol:    strings.ToUpper(strings.TrimSpace(data.Symbol)),
		Quantity:  quantity,
		CostPrice: price,
		Tags:      data.Tags,
	}, nil
}

func parseNumber(field, value string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d.InexactFloat64(), nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
