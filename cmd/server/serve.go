package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/database"
	"github.com/iliyamo/cafe-ordering/internal/handler"
	"github.com/iliyamo/cafe-ordering/internal/logging"
	"github.com/iliyamo/cafe-ordering/internal/mail"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/queue"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/router"
	"github.com/iliyamo/cafe-ordering/internal/service"
)

func serveCmd() *cobra.Command {
	var (
		migrateFirst bool
		noConsumer   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the notification consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), migrateFirst, !noConsumer)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	cmd.Flags().BoolVar(&noConsumer, "no-consumer", false, "do not start the mail notification consumer")
	return cmd
}

func serve(parent context.Context, migrateFirst, withConsumer bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logging.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrateFirst {
		if err := database.Migrate(db, true); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: response cache disabled, rate limiting is process-local")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	publisher := queue.NewPublisher(cfg.AMQPURL, log)
	defer publisher.Close()

	// repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	requests := repository.NewRequestRepo(db)
	products := repository.NewProductRepo(db)
	categories := repository.NewCategoryRepo(db)
	seats := repository.NewSeatRepo(db)
	carts := repository.NewCartRepo(db)
	messages := repository.NewMessageRepo(db)
	reports := repository.NewReportRepo(db)

	// services
	lifecycle := service.NewLifecycle(requests, products, seats, publisher, service.Policy{
		AdminForceCancel: cfg.Lifecycle.AdminForceCancel,
		DefaultSlot:      cfg.Lifecycle.DefaultSlot,
	}, log)
	cartSvc := service.NewCarts(carts, products, lifecycle, log)
	analytics := service.NewAnalytics(reports)

	purge := func(ctx context.Context) {
		if err := middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix); err != nil {
			log.WithError(err).Warn("purge analytics cache")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(logging.RequestLogger(log))
	e.Use(metrics.Middleware())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	reqHandler := handler.NewRequestHandler(lifecycle, log, purge)
	catalog := handler.NewCatalogHandler(products, categories, seats, log, purge)
	msgHandler := handler.NewMessageHandler(messages, log)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, log), cfg.JWTSecret)
	router.RegisterPublic(e, catalog, msgHandler, handler.NewAnalyticsHandler(analytics, log), middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterCustomer(e, reqHandler, handler.NewCartHandler(cartSvc, log, purge), cfg.JWTSecret)
	router.RegisterAdmin(e, router.AdminHandlers{
		Requests:  reqHandler,
		Catalog:   catalog,
		Messages:  msgHandler,
		Customers: handler.NewCustomerHandler(users, log),
	}, cfg.JWTSecret)

	consumerDone := make(chan struct{})
	if withConsumer {
		sender := mail.NewSender(cfg.SMTP, log)
		consumer := queue.NewConsumer(cfg.AMQPURL, sender.HandleStatusChanged, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("notification consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	addr := ":" + cfg.Port
	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		stop()
		<-consumerDone
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	<-consumerDone
	return nil
}
