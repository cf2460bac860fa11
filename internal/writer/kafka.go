package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/dnwe/otelsarama"
	"go.uber.org/zap"

	"github.com/jsphbtst/personal-alpaca-cli/internal/config"
	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// quoteMessage is the JSON value published for each update.
type quoteMessage struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Mid    float64   `json:"mid"`
	Time   time.Time `json:"time"`
}

func encodeQuote(u model.PriceUpdate) ([]byte, error) {
	return json.Marshal(quoteMessage{
		Symbol: u.Symbol,
		Bid:    u.Bid,
		Ask:    u.Ask,
		Mid:    u.Price,
		Time:   u.ReceivedAt.UTC(),
	})
}

// KafkaPublisher sends each price update to a topic, keyed by symbol so a
// symbol's updates stay ordered within one partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func buildSaramaConfig(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = "quotestream"
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Timeout = cfg.Timeout
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

// NewKafkaPublisher connects a synchronous producer to cfg.Brokers.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: brokers required")
	}
	sc := buildSaramaConfig(cfg)

	prod, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: connect: %w", err)
	}

	p := newKafkaPublisher(otelsarama.WrapSyncProducer(sc, prod), cfg.Topic, logger)
	p.logger.Info("kafka publisher ready",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return p, nil
}

func newKafkaPublisher(prod sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{producer: prod, topic: topic, logger: logger.Named("kafka")}
}

// Name implements consumer.Consumer.
func (p *KafkaPublisher) Name() string { return "kafka" }

// Consume publishes u and waits for the broker ack.
func (p *KafkaPublisher) Consume(_ context.Context, u model.PriceUpdate) error {
	value, err := encodeQuote(u)
	if err != nil {
		return fmt.Errorf("encode %s: %w", u.Symbol, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(u.Symbol),
		Value:     sarama.ByteEncoder(value),
		Timestamp: u.ReceivedAt,
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", u.Symbol, err)
	}

	p.logger.Debug("published",
		zap.String("symbol", u.Symbol),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("kafka publisher: close: %w", err)
	}
	p.logger.Info("kafka publisher closed")
	return nil
}
