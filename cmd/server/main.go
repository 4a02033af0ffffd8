package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/invoice"
	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB(gdb, logger)
	if err := db.Migrate(gdb); err != nil {
		return err
	}
	r := &repo.GormRepo{DB: gdb}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	sessions := session.NewStore(rdb, "session")
	if err := sessions.Ping(initCtx); err != nil {
		return err
	}

	pub, err := publisher(cfg)
	if err != nil {
		return err
	}
	defer pub.Close()

	var (
		searcher search.Searcher = &search.Database{Repo: r}
		indexer  search.Indexer  = &search.Database{Repo: r}
	)
	if cfg.Search.URL != "" {
		es, err := search.NewElastic(cfg.Search)
		if err != nil {
			return err
		}
		searcher, indexer = es, es
	}

	store, disconnect, err := invoiceStore(initCtx, cfg)
	if err != nil {
		return err
	}
	defer disconnect()

	renderer, err := view.New()
	if err != nil {
		return err
	}

	authSvc := &service.AuthService{
		Repo:     r,
		Sessions: sessions,
		Tokens: tokens.Issuer{
			AccessSecret:  []byte(cfg.Auth.JWTSecret),
			RefreshSecret: []byte(cfg.Auth.RefreshSecret),
			AccessTTL:     cfg.Auth.AccessTTL,
			RefreshTTL:    cfg.Auth.RefreshTTL,
		},
		Events:   pub,
		ResetTTL: cfg.Auth.ResetTTL,
	}
	authn := &authmw.Authenticator{Svc: authSvc, Secure: cfg.Auth.SecureCookies}

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.Auth.SecureCookies
	csrfCfg.EnforceSameOrigin = cfg.CSRF.EnforceSameOrigin

	e := httpserver.New(&httpserver.Deps{
		Shop: &httpserver.ShopHTTP{
			Catalog:  &service.CatalogService{Repo: r, Search: searcher, PageSize: cfg.Shop.ItemsPerPage},
			Cart:     &service.CartService{Repo: r, Events: pub},
			Orders:   &service.OrderService{Repo: r, Events: pub},
			Invoices: &service.InvoiceService{Repo: r, Store: store},
		},
		Admin:             &httpserver.AdminHTTP{Svc: &service.AdminService{Repo: r, Events: pub, Index: indexer}},
		Auth:              &httpserver.AuthHTTP{Svc: authSvc, Authn: authn},
		Authn:             authn,
		Renderer:          renderer,
		Logger:            logger,
		CSRF:              csrfCfg,
		Checks:            map[string]httpserver.Pinger{"db": r, "redis": sessions},
		PublicDir:         cfg.HTTP.PublicDir,
		AuthRatePerMinute: cfg.HTTP.AuthRatePerMinute,
	})
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", "addr", cfg.HTTP.Addr)
		if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return err
	}
	logger.Info("server_stopping")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	logger.Info("server_stopped")
	return nil
}

func publisher(cfg config.Config) (events.Publisher, error) {
	switch cfg.Events.Broker {
	case "kafka":
		return events.NewKafkaPublisher(cfg.Kafka.Brokers)
	case "rabbitmq":
		return events.NewRabbitPublisher(cfg.Rabbit.URL, events.Topics)
	default:
		return events.Nop{}, nil
	}
}

func invoiceStore(ctx context.Context, cfg config.Config) (invoice.Store, func(), error) {
	if cfg.Invoice.Backend != "gridfs" {
		s, err := invoice.NewFileStore(cfg.Invoice.Dir)
		return s, func() {}, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, nil, err
	}
	disconnect := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	s, err := invoice.NewGridFSStore(client.Database(cfg.Mongo.Database), cfg.Invoice.Bucket)
	if err != nil {
		disconnect()
		return nil, nil, err
	}
	return s, disconnect, nil
}

func closeDB(gdb *gorm.DB, logger *slog.Logger) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
}
