package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mirror-sync-go/internal/config"
	"mirror-sync-go/internal/domain/mirror"
	"mirror-sync-go/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const headerEventID = "event_id"

var ErrNoBrokers = errors.New("kafka: no brokers configured")

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher announces mirrored repositories on a Kafka topic, keyed by
// repository name so events for one repository stay ordered.
type KafkaPublisher struct {
	writer Writer
	topic  string
	log    logger.Logger
	now    func() time.Time
}

func NewKafkaPublisher(cfg config.KafkaConfig, log logger.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("kafka: " + fmt.Sprintf(msg, args...))
		}),
	}

	log.Info("kafka: publisher ready", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewPublisherWithWriter(writer, cfg.Topic, log), nil
}

func NewPublisherWithWriter(writer Writer, topic string, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		log:    log,
		now:    time.Now,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, message mirror.RepoMessage) error {
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode repo message: %w", err)
	}

	eventID := uuid.NewString()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(message.Name),
		Value: value,
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(eventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	p.log.Debug("kafka: published", "topic", p.topic, "repo", message.Name, "event_id", eventID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
