package stream

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmitrijs2005/kodbank/internal/common"
)

// KafkaBroker implements Broker on top of a Kafka cluster via
// github.com/segmentio/kafka-go. Every topic it manages is created with a
// single partition: the materializer depends on strict per-topic ordering,
// which multiple partitions would break.
type KafkaBroker struct {
	addrs        []string
	groupID      string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	writer       *kafka.Writer
}

func NewKafkaBroker(addrs []string, groupID string, dialTimeout, writeTimeout time.Duration) *KafkaBroker {
	w := &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: writeTimeout,
		BatchSize:    1,
	}
	return &KafkaBroker{
		addrs:        addrs,
		groupID:      groupID,
		dialTimeout:  dialTimeout,
		writeTimeout: writeTimeout,
		writer:       w,
	}
}

// EnsureTopics creates the given topics with one partition each if they do
// not already exist.
func (b *KafkaBroker) EnsureTopics(ctx context.Context, topics ...string) error {
	dialer := &kafka.Dialer{Timeout: b.dialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", b.addrs[0])
	if err != nil {
		return fmt.Errorf("%w: dial: %v", common.ErrorTransport, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("%w: controller lookup: %v", common.ErrorTransport, err)
	}

	controllerConn, err := dialer.DialContext(ctx, "tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("%w: dial controller: %v", common.ErrorTransport, err)
	}
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	if err := controllerConn.CreateTopics(configs...); err != nil {
		return fmt.Errorf("%w: create topics: %v", common.ErrorTransport, err)
	}
	return nil
}

func (b *KafkaBroker) Publisher() Publisher {
	return &kafkaPublisher{writer: b.writer}
}

// Subscriber joins the broker's consumer group over the given topics.
// A fresh group starts from the first offset; a reconnecting group resumes
// from its committed position.
func (b *KafkaBroker) Subscriber(topics ...string) (Subscriber, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.addrs,
		GroupID:     b.groupID,
		GroupTopics: topics,
		StartOffset: kafka.FirstOffset,
		Dialer:      &kafka.Dialer{Timeout: b.dialTimeout},
	})
	return &kafkaSubscriber{reader: r}, nil
}

func (b *KafkaBroker) Close() error {
	return b.writer.Close()
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("%w: publish to %s: %v", common.ErrorTransport, topic, err)
	}
	return nil
}

// Close is a no-op: the writer belongs to the broker and is shared by all
// publishers it hands out.
func (p *kafkaPublisher) Close() error { return nil }

type kafkaSubscriber struct {
	reader *kafka.Reader
}

func (s *kafkaSubscriber) Fetch(ctx context.Context) (Record, error) {
	msg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}
		return Record{}, fmt.Errorf("%w: fetch: %v", common.ErrorTransport, err)
	}
	return Record{
		Topic:     msg.Topic,
		Key:       msg.Key,
		Value:     msg.Value,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}, nil
}

func (s *kafkaSubscriber) Commit(ctx context.Context, rec Record) error {
	err := s.reader.CommitMessages(ctx, kafka.Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
	})
	if err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrorTransport, err)
	}
	return nil
}

func (s *kafkaSubscriber) Close() error {
	return s.reader.Close()
}
