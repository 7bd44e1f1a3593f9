package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/kodbank/internal/common"
)

// MemoryBroker is an in-process Broker with the same delivery contract as
// the Kafka one: per-topic append order is preserved, a fresh subscription
// starts at the earliest retained offset, and a resubscription resumes from
// the last committed offset (the broker models a single consumer group, the
// same shape the server runs with). Records committed by no one are
// redelivered on resubscribe, so consumers see at-least-once delivery.
// Used by tests and by the "memory" broker mode.
type MemoryBroker struct {
	mu        sync.Mutex
	logs      map[string][]Record
	committed map[string]int64
	notify    chan struct{}
	closed    bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		logs:      make(map[string][]Record),
		committed: make(map[string]int64),
		notify:    make(chan struct{}),
	}
}

// EnsureTopics registers the topics so publishing to an unknown topic can be
// told apart from publishing to an empty one.
func (b *MemoryBroker) EnsureTopics(ctx context.Context, topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		if _, ok := b.logs[topic]; !ok {
			b.logs[topic] = nil
		}
	}
	return nil
}

func (b *MemoryBroker) Publisher() Publisher {
	return &memoryPublisher{broker: b}
}

func (b *MemoryBroker) Subscriber(topics ...string) (Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[string]int64, len(topics))
	for _, topic := range topics {
		next[topic] = b.committed[topic]
	}
	sub := &memorySubscriber{
		broker: b,
		topics: append([]string(nil), topics...),
		next:   next,
	}
	return sub, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.notify)
	}
	return nil
}

func (b *MemoryBroker) append(topic string, key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("%w: broker closed", common.ErrorTransport)
	}

	log := b.logs[topic]
	rec := Record{
		Topic:  topic,
		Key:    append([]byte(nil), key...),
		Value:  append([]byte(nil), value...),
		Offset: int64(len(log)),
	}
	b.logs[topic] = append(log, rec)

	// wake blocked subscribers
	close(b.notify)
	b.notify = make(chan struct{})
	return nil
}

type memoryPublisher struct {
	broker *MemoryBroker
}

func (p *memoryPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.broker.append(topic, key, value)
}

func (p *memoryPublisher) Close() error { return nil }

type memorySubscriber struct {
	broker *MemoryBroker
	topics []string
	next   map[string]int64
	rr     int
	closed bool
}

// Fetch returns the next undelivered record, interleaving topics round-robin
// so neither stream can starve the other. It blocks until a record arrives
// or ctx is done.
func (s *memorySubscriber) Fetch(ctx context.Context) (Record, error) {
	for {
		s.broker.mu.Lock()
		if s.closed || s.broker.closed {
			s.broker.mu.Unlock()
			return Record{}, fmt.Errorf("%w: subscriber closed", common.ErrorTransport)
		}

		for i := 0; i < len(s.topics); i++ {
			topic := s.topics[(s.rr+i)%len(s.topics)]
			log := s.broker.logs[topic]
			pos := s.next[topic]
			if pos < int64(len(log)) {
				rec := log[pos]
				s.next[topic] = pos + 1
				s.rr = (s.rr + i + 1) % len(s.topics)
				s.broker.mu.Unlock()
				return rec, nil
			}
		}

		notify := s.broker.notify
		s.broker.mu.Unlock()

		select {
		case <-ctx.Done():
			return Record{}, ctx.Err()
		case <-notify:
		}
	}
}

// Commit advances the consumer group's position past rec. A later
// subscription resumes from here; anything fetched but not committed is
// redelivered.
func (s *memorySubscriber) Commit(ctx context.Context, rec Record) error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if next := rec.Offset + 1; next > s.broker.committed[rec.Topic] {
		s.broker.committed[rec.Topic] = next
	}
	return nil
}

func (s *memorySubscriber) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.closed = true
	return nil
}
