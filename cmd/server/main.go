package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/marketplace-auction/internal/config"
	"github.com/iliyamo/marketplace-auction/internal/database"
	"github.com/iliyamo/marketplace-auction/internal/handler"
	"github.com/iliyamo/marketplace-auction/internal/logger"
	"github.com/iliyamo/marketplace-auction/internal/market"
	"github.com/iliyamo/marketplace-auction/internal/middleware"
	"github.com/iliyamo/marketplace-auction/internal/notify"
	"github.com/iliyamo/marketplace-auction/internal/queue"
	"github.com/iliyamo/marketplace-auction/internal/repository"
	"github.com/iliyamo/marketplace-auction/internal/router"
)

const serviceName = "marketplace"

// backend is the persistence chosen by STORE_DRIVER.
type backend struct {
	store  market.Store
	reader market.Reader
	users  handler.Accounts
	tokens handler.Sessions
	db     *sql.DB // nil for the memory driver
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	lg := logger.New(serviceName, cfg.LogLevel)
	defer func() { _ = lg.Sync() }()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, lg *zap.Logger) error {
	mcfg, err := config.LoadMarketConfig()
	if err != nil {
		return err
	}
	bcfg, err := config.LoadBrokerConfig()
	if err != nil {
		return err
	}
	hcfg := config.LoadHubConfig()

	be, err := openBackend(ctx, cfg, lg)
	if err != nil {
		return err
	}
	if be.db != nil {
		defer func() { _ = be.db.Close() }()
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	} else {
		lg.Warn("redis unavailable: cache, rate limit and relay disabled")
	}

	// live updates: engine -> dispatcher -> (hub | redis relay) and broker
	hub := notify.NewHub(hcfg.Shards, hcfg.Buffer)
	defer hub.Close()
	var bc notify.Broadcaster = hub
	if hcfg.RedisRelay && rdb != nil {
		relay := notify.NewRedisRelay(rdb, hub, lg)
		bc = relay
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("redis relay stopped", zap.Error(err))
			}
		}()
	}
	sinks, closeSinks := openSinks(ctx, bcfg, lg)
	defer closeSinks()

	dispatcher := notify.NewDispatcher(bc, hcfg.QueueSize, lg, sinks...)
	dispatchDone := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(dispatchDone)
	}()

	engine, err := market.NewEngine(be.store,
		market.WithNotifier(dispatcher),
		market.WithCommissionRate(mcfg.CommissionRate),
		market.WithLogger(lg),
	)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLog(lg))
	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, mcfg.SellerAutoApprove, be.users, be.tokens, lg),
		Listings:  handler.NewListingHandler(engine, be.reader, be.users, lg),
		Account:   handler.NewAccountHandler(engine, be.reader, be.users, lg),
		Admin:     handler.NewAdminHandler(engine, be.users, lg),
		Watch:     handler.NewWatchHandler(engine, be.reader, hub, lg),
		JWTSecret: cfg.JWTSecret,
		Limiter:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
			zap.String("broker", bcfg.Kind),
			zap.String("commission_rate", mcfg.CommissionRate.String()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	<-dispatchDone
	return nil
}

func openBackend(ctx context.Context, cfg config.Config, lg *zap.Logger) (backend, error) {
	if cfg.StoreDriver == config.StoreMemory {
		lg.Warn("using in-memory store, data is lost on exit")
		ms := repository.NewMemoryStore()
		return backend{
			store:  ms,
			reader: ms,
			users:  repository.NewMemoryUserRepo(),
			tokens: repository.NewMemoryTokenRepo(),
		}, nil
	}

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return backend{}, err
	}
	if cfg.AutoMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			_ = db.Close()
			return backend{}, err
		}
	}
	ss := repository.NewMySQLStore(db)
	return backend{
		store:  ss,
		reader: ss,
		users:  repository.NewUserRepo(db),
		tokens: repository.NewTokenRepo(db),
		db:     db,
	}, nil
}

// openSinks connects the configured broker.  A broker that cannot be
// reached is logged and skipped; the marketplace keeps serving.
func openSinks(ctx context.Context, bcfg config.BrokerConfig, lg *zap.Logger) ([]notify.Sink, func()) {
	switch bcfg.Kind {
	case config.BrokerRabbitMQ:
		pub := queue.NewRabbitPublisher(bcfg.RabbitURL, bcfg.RabbitQueue, lg)
		if bcfg.RunConsumer {
			consumer := &queue.AuditConsumer{URL: bcfg.RabbitURL, Queue: bcfg.RabbitQueue, Path: bcfg.AuditLog, Log: lg}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					lg.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
		return []notify.Sink{pub}, func() { _ = pub.Close() }
	case config.BrokerNATS:
		pub, err := queue.NewNatsPublisher(bcfg.NatsURL, bcfg.NatsSubject)
		if err != nil {
			lg.Warn("nats unavailable, events stay local", zap.String("url", bcfg.NatsURL), zap.Error(err))
			return nil, func() {}
		}
		return []notify.Sink{pub}, func() { _ = pub.Close() }
	}
	return nil, func() {}
}
