// Package server initializes and runs the main application server.
// It wires the log transport, the materializer and the HTTP API together,
// and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/kodbank/internal/logging"
	"github.com/dmitrijs2005/kodbank/internal/server/accounts"
	"github.com/dmitrijs2005/kodbank/internal/server/chat"
	"github.com/dmitrijs2005/kodbank/internal/server/config"
	"github.com/dmitrijs2005/kodbank/internal/server/gateway"
	"github.com/dmitrijs2005/kodbank/internal/server/httpapi"
	"github.com/dmitrijs2005/kodbank/internal/server/materializer"
	"github.com/dmitrijs2005/kodbank/internal/server/snapshot"
	"github.com/dmitrijs2005/kodbank/internal/server/stream"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	broker       stream.Broker
	materializer *materializer.Materializer
	httpServer   *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	broker, err := newBroker(c)
	if err != nil {
		return nil, fmt.Errorf("broker init error: %w", err)
	}

	store := snapshot.NewStore()
	mat := materializer.New(broker, store, logger, c.AccountsTopic, c.TokensTopic)

	gw := gateway.New(broker.Publisher(), store, c.AccountsTopic, c.TokensTopic)
	acc := accounts.NewService(gw, store, c)
	chatClient := chat.NewClient(c.ChatEndpoint, c.ChatAPIKey, c.ConnectTimeout)

	httpServer := httpapi.NewServer(c.EndpointAddrHTTP, acc, chatClient, logger, c.CORSOrigins, c.TokenValidityDuration)

	return &App{
		config:       c,
		logger:       logger,
		broker:       broker,
		materializer: mat,
		httpServer:   httpServer,
	}, nil
}

func newBroker(c *config.Config) (stream.Broker, error) {
	switch c.BrokerKind {
	case "memory":
		return stream.NewMemoryBroker(), nil
	case "kafka":
		return stream.NewKafkaBroker(c.BrokerAddrs, c.ConsumerGroup, c.ConnectTimeout, c.PublishTimeout), nil
	default:
		return nil, fmt.Errorf("unknown broker kind %q", c.BrokerKind)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startMaterializer(ctx context.Context) {
	if err := app.materializer.Run(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, err.Error())
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.broker.EnsureTopics(ctx, app.config.AccountsTopic, app.config.TokensTopic); err != nil {
		// the materializer retries its subscription anyway; topic creation
		// failing here usually means the broker is still coming up
		app.logger.Warn(ctx, "topic creation failed", "error", err.Error())
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startMaterializer(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.broker.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
