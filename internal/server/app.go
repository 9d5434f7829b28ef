// Package server wires the onboarding service together: entity store,
// object store, notifiers, the chat conversation and the staff API.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/hronboard/internal/logging"
	"github.com/dmitrijs2005/hronboard/internal/server/bot"
	"github.com/dmitrijs2005/hronboard/internal/server/config"
	"github.com/dmitrijs2005/hronboard/internal/server/httpapi"
	"github.com/dmitrijs2005/hronboard/internal/server/metrics"
	"github.com/dmitrijs2005/hronboard/internal/server/notify"
	"github.com/dmitrijs2005/hronboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hronboard/internal/server/services"
	"github.com/dmitrijs2005/hronboard/internal/server/storage"
	"github.com/dmitrijs2005/hronboard/internal/server/telegram"

	gs "github.com/dmitrijs2005/hronboard/internal/server/grpc"
)

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	registry    *prometheus.Registry
	collector   *metrics.Collector
	closers     []func() error

	candidates *services.CandidateService
	documents  *services.DocumentService
	statements *services.BankStatementService
	messages   *services.MessageService

	chat     *telegram.Adapter
	sessions bot.SessionStore
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: repomanager.NewPostgresRepositoryManager(),
		registry:    prometheus.NewRegistry(),
	}
	app.closers = append(app.closers, db.Close)
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.collector = metrics.NewCollector(app.registry)

	store, err := app.objectStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	if c.TelegramToken != "" {
		app.chat, err = telegram.New(c.TelegramToken, c.TelegramRatePerSecond, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	app.sessions = app.sessionStore()

	notifier, err := app.notifier()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.documents = services.NewDocumentService(db, app.repomanager, store, c)
	app.statements = services.NewBankStatementService(db, app.repomanager, app.documents)
	app.candidates = services.NewCandidateService(db, app.repomanager, store, notifier, c, logger)
	app.messages = services.NewMessageService(db, app.repomanager, app.chatSender(), notifier, c, logger)

	return app, nil
}

func (app *App) objectStore(ctx context.Context) (storage.ObjectStore, error) {
	if app.config.S3BaseEndpoint == "" {
		app.logger.Warn(ctx, "no object store endpoint configured, files are kept in memory")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Region:       app.config.S3Region,
		AccessKey:    app.config.S3RootUser,
		SecretKey:    app.config.S3RootPassword,
		BaseEndpoint: app.config.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}
	return store, nil
}

func (app *App) sessionStore() bot.SessionStore {
	if app.config.RedisAddr == "" {
		return bot.NewMemorySessionStore()
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{app.config.RedisAddr}})
	app.closers = append(app.closers, client.Close)
	return bot.NewRedisSessionStore(client, app.config.SessionTTL)
}

func (app *App) chatSender() notify.ChatSender {
	if app.chat == nil {
		return notify.DisabledSender{}
	}
	return app.chat
}

// notifier fans intents out to the log, the candidate's chat and, when
// configured, the Kafka topic consumed by the mailer.
func (app *App) notifier() (notify.Notifier, error) {
	catalogue, err := notify.DefaultCatalogue()
	if err != nil {
		return nil, err
	}

	n := notify.Multi{notify.NewLogNotifier(app.logger)}
	if app.chat != nil {
		n = append(n, notify.NewChatNotifier(app.chat, catalogue))
	}
	if len(app.config.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(notify.NewKafkaWriter(app.config.KafkaBrokers, app.config.KafkaTopic, app.logger), catalogue)
		app.closers = append(app.closers, kn.Close)
		n = append(n, kn)
	}
	return n, nil
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

func (app *App) router() http.Handler {
	return httpapi.NewRouter(&httpapi.Deps{
		Candidates:   app.candidates,
		Documents:    app.documents,
		BankAccounts: app.statements,
		Messages:     app.messages,
		Secret:       []byte(app.config.SecretKey),
		Metrics:      metrics.Handler(app.registry),
		Observer:     app.collector,
		Logger:       app.logger,
	})
}

func (app *App) startHTTPServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startBot(ctx context.Context) error {
	if app.chat == nil {
		app.logger.Warn(ctx, "telegram token is empty, chat transport disabled")
		return nil
	}

	engine := bot.NewEngine(app.candidates, app.documents, app.statements, app.messages, app.sessions, app.chat, app.logger)
	engine.SetObserver(app.collector)
	dispatcher := bot.NewDispatcher(engine, app.logger)

	app.logger.Info(ctx, "Starting chat dispatcher")
	if err := dispatcher.Run(ctx, app.chat.Events(ctx)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Run migrates the schema and serves until a signal arrives or a component
// fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	defer app.Close()

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db).Run(ctx)
	})
	g.Go(func() error {
		return app.startHTTPServer(ctx)
	})
	g.Go(func() error {
		return app.startBot(ctx)
	})

	return g.Wait()
}

// Close releases connections in reverse order of opening.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
