// Package materializer runs the consumer loop that rebuilds the snapshot
// from the log. It subscribes to both entity topics from the earliest
// retained offset and applies every record in delivery order, so the
// snapshot is always "the log so far". Applies are idempotent: the broker
// delivers at-least-once, and replays from the beginning on every restart.
package materializer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/kodbank/internal/logging"
	"github.com/dmitrijs2005/kodbank/internal/server/event"
	"github.com/dmitrijs2005/kodbank/internal/server/snapshot"
	"github.com/dmitrijs2005/kodbank/internal/server/stream"
)

type Materializer struct {
	broker        stream.Broker
	store         *snapshot.Store
	logger        logging.Logger
	accountsTopic string
	tokensTopic   string

	// applied counts records consumed from the log, including skipped
	// poison messages. Exposed for progress logging and tests.
	applied atomic.Uint64
}

func New(broker stream.Broker, store *snapshot.Store, logger logging.Logger, accountsTopic, tokensTopic string) *Materializer {
	return &Materializer{
		broker:        broker,
		store:         store,
		logger:        logger.With("module", "materializer"),
		accountsTopic: accountsTopic,
		tokensTopic:   tokensTopic,
	}
}

// Applied returns the number of records consumed so far.
func (m *Materializer) Applied() uint64 {
	return m.applied.Load()
}

// Run connects, subscribes both topics and drains until ctx is cancelled.
// Transport failures trigger resubscription with exponential backoff; the
// snapshot is never rolled back, replay resumes forward from the consumer
// group's committed position. The only way out of the loop is ctx.
func (m *Materializer) Run(ctx context.Context) error {
	for {
		sub, err := m.subscribe(ctx)
		if err != nil {
			// subscribe only fails once ctx is done
			return err
		}

		m.logger.Info(ctx, "subscribed", "topics", []string{m.accountsTopic, m.tokensTopic})

		err = m.drain(ctx, sub)
		_ = sub.Close()

		if ctx.Err() != nil {
			m.logger.Info(ctx, "consumer loop stopped")
			return ctx.Err()
		}

		m.logger.Warn(ctx, "stream failed, resubscribing", "error", err.Error())
	}
}

func (m *Materializer) subscribe(ctx context.Context) (stream.Subscriber, error) {
	backoff := retry.WithCappedDuration(30*time.Second, retry.NewExponential(250*time.Millisecond))

	var sub stream.Subscriber
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := m.broker.Subscriber(m.accountsTopic, m.tokensTopic)
		if err != nil {
			m.logger.Warn(ctx, "subscribe failed, retrying", "error", err.Error())
			return retry.RetryableError(err)
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (m *Materializer) drain(ctx context.Context, sub stream.Subscriber) error {
	for {
		rec, err := sub.Fetch(ctx)
		if err != nil {
			return err
		}

		m.apply(ctx, rec)
		m.applied.Add(1)
		m.logger.Debug(ctx, "applied", "topic", rec.Topic, "offset", rec.Offset)

		if err := sub.Commit(ctx, rec); err != nil {
			return err
		}
	}
}

// apply dispatches one record to the snapshot. Decode failures are logged
// and skipped so one poison message cannot stall replay of the records
// behind it.
func (m *Materializer) apply(ctx context.Context, rec stream.Record) {
	switch rec.Topic {
	case m.accountsTopic:
		a, err := event.DecodeAccount(rec.Value)
		if err != nil {
			m.logger.Warn(ctx, "skipping malformed account record",
				"offset", rec.Offset, "error", err.Error())
			return
		}
		m.store.ApplyAccount(a)

	case m.tokensTopic:
		t, err := event.DecodeToken(rec.Value)
		if err != nil {
			m.logger.Warn(ctx, "skipping malformed token record",
				"offset", rec.Offset, "error", err.Error())
			return
		}
		if t.IsTombstone() {
			m.store.DeleteToken(t.Token)
		} else {
			m.store.ApplyToken(t)
		}

	default:
		m.logger.Warn(ctx, "record from unexpected topic", "topic", rec.Topic)
	}
}
