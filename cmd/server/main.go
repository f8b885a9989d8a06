// Command server wires configuration, stores, services and the HTTP router,
// then runs until interrupted. Business logic lives in the internal service
// packages; main only assembles them.
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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"signet/internal/audit"
	auditkafka "signet/internal/audit/kafka"
	auditmemory "signet/internal/audit/store/memory"
	auditpostgres "signet/internal/audit/store/postgres"
	auditworker "signet/internal/audit/worker"
	commerceclient "signet/internal/commerce/client"
	commercehandler "signet/internal/commerce/handler"
	commerceservice "signet/internal/commerce/service"
	"signet/internal/content"
	dochandler "signet/internal/document/handler"
	docservice "signet/internal/document/service"
	docstore "signet/internal/document/store"
	httpapi "signet/internal/http"
	identityhandler "signet/internal/identity/handler"
	identityservice "signet/internal/identity/service"
	identitystore "signet/internal/identity/store"
	"signet/internal/platform/config"
	"signet/internal/platform/httpserver"
	"signet/internal/platform/logger"
	"signet/internal/platform/metrics"
	platformredis "signet/internal/platform/redis"
	"signet/internal/ratelimit"
	"signet/internal/token"
	"signet/internal/token/revocation"
	txcontext "signet/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		db           *sql.DB
		userStore    identitystore.UserStore
		documents    docstore.DocumentStore
		auditStore   audit.Store
		txRunner     txcontext.Runner = txcontext.NoopRunner{}
		healthChecks []httpapi.HealthCheck
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to reach database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		userStore = identitystore.NewPostgres(db)
		documents = docstore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		txRunner = txcontext.NewSQLRunner(db)
		healthChecks = append(healthChecks, httpapi.HealthCheck{
			Name:  "postgres",
			Check: db.PingContext,
		})
	} else {
		userStore = identitystore.NewInMemory()
		documents = docstore.NewInMemory()
		auditStore = auditmemory.New()
		log.Info("no DATABASE_URL set, using in-memory stores")
	}

	var revocations revocation.List = revocation.NewInMemory()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		revocations = revocation.NewRedisList(redisClient.Client)
		healthChecks = append(healthChecks, httpapi.HealthCheck{
			Name:  "redis",
			Check: redisClient.Health,
		})
	}

	auditOpts := []audit.Option{audit.WithMetrics(m)}
	var sinkInbox chan audit.Entry
	var kafkaSink *auditkafka.Publisher
	if len(cfg.AuditKafkaBrokers) > 0 {
		kafkaSink, err = auditkafka.New(cfg.AuditKafkaBrokers, cfg.AuditKafkaTopic)
		if err != nil {
			log.Error("failed to connect audit kafka sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinkInbox = make(chan audit.Entry, 256)
		auditOpts = append(auditOpts, audit.WithSink(sinkInbox))
	}
	auditor := audit.NewPublisher(auditStore, log, auditOpts...)

	tokens := token.NewService(cfg.JWTSigningKey, "signet")
	tokenValidator := token.NewMiddlewareAdapter(tokens)

	identity := identityservice.NewService(userStore, auditor,
		identityservice.WithRevocations(revocations),
		identityservice.WithMetrics(m),
	)

	blobs := content.NewFSStore(cfg.UploadDir)
	documentsSvc := docservice.NewService(
		documents,
		blobs,
		content.Allowlist(cfg.AllowedFileTypes),
		auditor,
		docservice.WithTxRunner(txRunner),
		docservice.WithMetrics(m),
	)

	var authThrottle *ratelimit.Middleware
	if cfg.AuthRateLimit > 0 {
		var limiter ratelimit.Limiter = ratelimit.NewInMemory()
		if redisClient != nil {
			limiter = ratelimit.NewRedis(redisClient.Client)
		}
		authThrottle = ratelimit.NewMiddleware(limiter, cfg.AuthRateLimit, cfg.AuthRateWindow, log)
	}

	shopify := commerceclient.New(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret)
	commerce := commerceservice.NewService(
		shopify, identity, documents, auditor, cfg.FrontendURL, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:       log,
		Metrics:      m,
		Auth:         identityhandler.New(identity, tokens, cfg.TokenTTL, tokenValidator, revocations, log),
		Documents:    dochandler.New(documentsSvc, tokenValidator, revocations, log),
		Commerce:     commercehandler.New(commerce, cfg.ShopifyWebhookSecret, log),
		AuthThrottle: authThrottle,
		HealthChecks: healthChecks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if kafkaSink != nil {
		w := auditworker.New(kafkaSink, sinkInbox, log)
		g.Go(func() error {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
