package materializer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/kodbank/internal/common"
	"github.com/dmitrijs2005/kodbank/internal/logging"
	"github.com/dmitrijs2005/kodbank/internal/server/event"
	"github.com/dmitrijs2005/kodbank/internal/server/models"
	"github.com/dmitrijs2005/kodbank/internal/server/snapshot"
	"github.com/dmitrijs2005/kodbank/internal/server/stream"
)

const (
	accountsTopic = "koduser_topic"
	tokensTopic   = "usertoken_topic"
)

func quietLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fixture struct {
	broker *stream.MemoryBroker
	store  *snapshot.Store
	mat    *Materializer
	pub    stream.Publisher
	cancel context.CancelFunc
}

func startMaterializer(t *testing.T) *fixture {
	t.Helper()

	broker := stream.NewMemoryBroker()
	store := snapshot.NewStore()
	mat := New(broker, store, quietLogger(), accountsTopic, tokensTopic)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = mat.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		broker.Close()
	})

	return &fixture{broker: broker, store: store, mat: mat, pub: broker.Publisher(), cancel: cancel}
}

func (f *fixture) publishAccount(t *testing.T, a *models.Account) {
	t.Helper()
	b, err := event.EncodeAccount(a)
	require.NoError(t, err)
	require.NoError(t, f.pub.Publish(context.Background(), accountsTopic, []byte(a.UID), b))
}

func (f *fixture) publishToken(t *testing.T, tok *models.Token) {
	t.Helper()
	b, err := event.EncodeToken(tok)
	require.NoError(t, err)
	require.NoError(t, f.pub.Publish(context.Background(), tokensTopic, []byte(tok.Token), b))
}

func (f *fixture) waitApplied(t *testing.T, n uint64) {
	t.Helper()
	require.Eventually(t, func() bool { return f.mat.Applied() >= n },
		2*time.Second, 5*time.Millisecond, "materializer did not consume %d records", n)
}

func TestMaterializer_RegisterThenLookupByUsername(t *testing.T) {
	t.Parallel()

	f := startMaterializer(t)
	f.publishAccount(t, &models.Account{UID: "u1", Username: "alice", Balance: 100000.0})
	f.waitApplied(t, 1)

	a, err := f.store.FindAccountByUsername("alice")
	require.NoError(t, err)
	require.Equal(t, "u1", a.UID)
	require.Equal(t, 100000.0, a.Balance)
}

func TestMaterializer_IssueThenRevokeToken(t *testing.T) {
	t.Parallel()

	f := startMaterializer(t)
	f.publishToken(t, &models.Token{Token: "t1", UID: "u1", Expairy: "2027-01-01T00:00:00.000Z"})
	f.publishToken(t, &models.Token{Token: "t1", Action: models.TokenActionDelete})
	f.waitApplied(t, 2)

	_, err := f.store.FindTokenByValue("t1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMaterializer_TombstoneForUnknownTokenIsNoOp(t *testing.T) {
	t.Parallel()

	f := startMaterializer(t)
	f.publishToken(t, &models.Token{Token: "ghost", Action: models.TokenActionDelete})
	f.publishToken(t, &models.Token{Token: "t1", UID: "u1"})
	f.waitApplied(t, 2)

	tok, err := f.store.FindTokenByValue("t1")
	require.NoError(t, err)
	require.Equal(t, "u1", tok.UID)
}

func TestMaterializer_LastWriteWinsPerTopic(t *testing.T) {
	t.Parallel()

	f := startMaterializer(t)
	f.publishAccount(t, &models.Account{UID: "u1", Username: "alice", Email: "first@example.com"})
	f.publishAccount(t, &models.Account{UID: "u1", Username: "alice", Email: "second@example.com"})
	f.waitApplied(t, 2)

	a, err := f.store.FindAccountByID("u1")
	require.NoError(t, err)
	require.Equal(t, "second@example.com", a.Email)
}

func TestMaterializer_PoisonMessageDoesNotStopReplay(t *testing.T) {
	t.Parallel()

	f := startMaterializer(t)
	f.publishAccount(t, &models.Account{UID: "u1", Username: "alice"})
	require.NoError(t, f.pub.Publish(context.Background(), accountsTopic, nil, []byte("{not valid json")))
	f.publishAccount(t, &models.Account{UID: "u2", Username: "bob"})
	f.waitApplied(t, 3)

	for _, uid := range []string{"u1", "u2"} {
		_, err := f.store.FindAccountByID(uid)
		require.NoError(t, err, "record %s lost around poison message", uid)
	}
}

func TestMaterializer_TokenBeforeAccountIsTolerated(t *testing.T) {
	t.Parallel()

	f := startMaterializer(t)

	// the token's account has not materialized yet
	f.publishToken(t, &models.Token{Token: "t1", UID: "u1"})
	f.waitApplied(t, 1)

	tok, err := f.store.FindTokenByValue("t1")
	require.NoError(t, err)
	_, err = f.store.FindAccountByID(tok.UID)
	require.ErrorIs(t, err, common.ErrorNotFound)

	// the join resolves once the account record arrives
	f.publishAccount(t, &models.Account{UID: "u1", Username: "alice"})
	f.waitApplied(t, 2)

	_, err = f.store.FindAccountByID("u1")
	require.NoError(t, err)
}

func TestMaterializer_RedeliveredRecordsAreIdempotent(t *testing.T) {
	t.Parallel()

	f := startMaterializer(t)

	accounts := []*models.Account{
		{UID: "u1", Username: "alice", Balance: 100000.0},
		{UID: "u2", Username: "bob", Balance: 100000.0},
	}
	publishAll := func() {
		for _, a := range accounts {
			f.publishAccount(t, a)
		}
		f.publishToken(t, &models.Token{Token: "t1", UID: "u1"})
	}

	publishAll()
	f.waitApplied(t, 3)

	// at-least-once delivery: the same records arrive a second time
	publishAll()
	f.waitApplied(t, 6)

	a, err := f.store.FindAccountByID("u1")
	require.NoError(t, err)
	require.Equal(t, "alice", a.Username)
	require.Equal(t, 100000.0, a.Balance)

	tok, err := f.store.FindTokenByValue("t1")
	require.NoError(t, err)
	require.Equal(t, "u1", tok.UID)
}

// flakyBroker fails a configurable number of Subscriber calls and hands out
// subscribers whose stream dies after a few records.
type flakyBroker struct {
	inner         stream.Broker
	mu            sync.Mutex
	subscribeFail int
	dieAfter      int
}

func (b *flakyBroker) EnsureTopics(ctx context.Context, topics ...string) error {
	return b.inner.EnsureTopics(ctx, topics...)
}

func (b *flakyBroker) Publisher() stream.Publisher { return b.inner.Publisher() }

func (b *flakyBroker) Subscriber(topics ...string) (stream.Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeFail > 0 {
		b.subscribeFail--
		return nil, fmt.Errorf("%w: boom", common.ErrorTransport)
	}
	sub, err := b.inner.Subscriber(topics...)
	if err != nil {
		return nil, err
	}
	return &dyingSubscriber{inner: sub, left: b.dieAfter}, nil
}

func (b *flakyBroker) Close() error { return b.inner.Close() }

type dyingSubscriber struct {
	inner stream.Subscriber
	left  int
}

func (s *dyingSubscriber) Fetch(ctx context.Context) (stream.Record, error) {
	if s.left == 0 {
		return stream.Record{}, fmt.Errorf("%w: connection lost", common.ErrorTransport)
	}
	s.left--
	return s.inner.Fetch(ctx)
}

func (s *dyingSubscriber) Commit(ctx context.Context, rec stream.Record) error {
	return s.inner.Commit(ctx, rec)
}

func (s *dyingSubscriber) Close() error { return s.inner.Close() }

func TestMaterializer_ReconnectsAfterTransportFailure(t *testing.T) {
	t.Parallel()

	mem := stream.NewMemoryBroker()
	defer mem.Close()
	flaky := &flakyBroker{inner: mem, subscribeFail: 2, dieAfter: 1}

	store := snapshot.NewStore()
	mat := New(flaky, store, quietLogger(), accountsTopic, tokensTopic)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = mat.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	pub := mem.Publisher()
	for i, uid := range []string{"u1", "u2", "u3"} {
		b, err := event.EncodeAccount(&models.Account{UID: uid, Username: fmt.Sprintf("user%d", i)})
		require.NoError(t, err)
		require.NoError(t, pub.Publish(ctx, accountsTopic, []byte(uid), b))
	}

	// every record materializes despite two failed subscribes and streams
	// dying after each delivered record
	require.Eventually(t, func() bool {
		for _, uid := range []string{"u1", "u2", "u3"} {
			if _, err := store.FindAccountByID(uid); err != nil {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMaterializer_RunStopsOnlyOnContext(t *testing.T) {
	t.Parallel()

	broker := stream.NewMemoryBroker()
	defer broker.Close()
	mat := New(broker, snapshot.NewStore(), quietLogger(), accountsTopic, tokensTopic)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mat.Run(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestMaterializer_UnknownTopicIsSkipped(t *testing.T) {
	t.Parallel()

	broker := stream.NewMemoryBroker()
	defer broker.Close()
	store := snapshot.NewStore()
	mat := New(broker, store, quietLogger(), accountsTopic, tokensTopic)

	mat.apply(context.Background(), stream.Record{Topic: "other_topic", Value: []byte("{}")})

	_, err := store.FindAccountByID("")
	require.Error(t, err)
}
