// Package stream abstracts the durable, ordered, append-only log the system
// of record lives in. Two single-partition topics carry account and token
// events; per-topic publish order is the only ordering guarantee, and
// delivery to subscribers is at-least-once.
package stream

import "context"

// Record is one log entry as delivered to a subscriber.
type Record struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int
	Offset    int64
}

// Publisher appends records to the log. Publish returns only after the
// broker has acknowledged the append, so a successful return means the
// write is durably queued. Errors wrap common.ErrorTransport.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

// Subscriber is an ordered stream over one or more topics, starting from the
// earliest retained offset (or the consumer group's committed position on
// reconnect). Fetch blocks until a record is available or ctx is done.
// Records from different topics may interleave; within a topic they arrive
// in publish order, possibly more than once.
type Subscriber interface {
	Fetch(ctx context.Context) (Record, error)
	Commit(ctx context.Context, rec Record) error
	Close() error
}

// Broker hands out publishers and subscribers over the same log. The
// materializer asks for a fresh Subscriber on every (re)connect.
type Broker interface {
	EnsureTopics(ctx context.Context, topics ...string) error
	Publisher() Publisher
	Subscriber(topics ...string) (Subscriber, error)
	Close() error
}
