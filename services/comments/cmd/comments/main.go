package main

import (
	"context"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/comments-platform/internal/platform/config"
	"github.com/example/comments-platform/internal/platform/httpserver"
	"github.com/example/comments-platform/internal/platform/logging"
	"github.com/example/comments-platform/internal/platform/mongodb"
	"github.com/example/comments-platform/internal/platform/natsconn"
	"github.com/example/comments-platform/internal/platform/redisconn"
	"github.com/example/comments-platform/internal/platform/run"
	"github.com/example/comments-platform/services/comments/internal/cache"
	"github.com/example/comments-platform/services/comments/internal/handlers"
	"github.com/example/comments-platform/services/comments/internal/store"
	"github.com/example/comments-platform/services/comments/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	commentStore, mongoConn, closeStore := initStore(cfg, log)
	if closeStore != nil {
		defer closeStore()
	}

	remote, closeRemote := initRemote(cfg, log)
	if closeRemote != nil {
		defer closeRemote()
	}

	deps := handlers.Deps{
		Store:  commentStore,
		Remote: remote,
		Logger: log,
		TTL:    cfg.CacheTTL,
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: readyFunc(mongoConn)})

	r.Route("/v1/stories/{story_id}/comments", func(r chi.Router) {
		r.Get("/", handlers.RootComments(deps))
		r.Get("/{comment_id}", handlers.GetComment(deps))
		r.Get("/{comment_id}/ancestors", handlers.Ancestors(deps))
		r.Get("/{comment_id}/replies", handlers.Replies(deps))
		r.Get("/{comment_id}/replies/flat", handlers.FlattenedReplies(deps))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		// start cache ingest consumer (non-fatal if NATS unavailable)
		nc, err := natsconn.Connect(natsconn.Options{})
		if err != nil {
			log.Error("nats connect", zap.Error(err))
		} else {
			go worker.StartCacheConsumer(ctx, nc, worker.Deps{
				Store:  commentStore,
				Remote: remote,
				Logger: log,
				TTL:    cfg.CacheTTL,
			})
			defer nc.Close()
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the CommentStore backend. In production (APP_ENV=production)
// it requires a working MongoDB connection and terminates the process otherwise.
func initStore(cfg config.AppConfig, log *zap.Logger) (store.CommentStore, *mongodb.Conn, func()) {
	if cfg.Mongo.URL == "" {
		if cfg.IsProduction() {
			log.Error("MONGO_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("MONGO_URL not set, using in-memory comment store (development only)")
		return store.NewInMemoryCommentStore(), nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := mongodb.Open(ctx, cfg.Mongo.URL, cfg.Mongo.Database, cfg.Mongo.ArchiveDatabase)
	if err != nil {
		if cfg.IsProduction() {
			log.Error("mongodb is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("mongodb unavailable, falling back to in-memory store", zap.Error(err))
		return store.NewInMemoryCommentStore(), nil, nil
	}

	log.Info("comment store: mongodb",
		zap.String("database", cfg.Mongo.Database),
		zap.Bool("archive", cfg.Mongo.ArchiveDatabase != ""))
	closeConn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(ctx)
	}
	return store.NewMongoCommentStore(conn.Comments, conn.ArchivedComments), conn, closeConn
}

// initRemote selects the shared cache tier. Without REDIS_URL the service
// runs the process-local variant: correct, but other replicas will not see
// this instance's cache writes.
func initRemote(cfg config.AppConfig, log *zap.Logger) (cache.Remote, func()) {
	if cfg.Redis.URL == "" {
		log.Warn("REDIS_URL not set, using process-local cache tier")
		return cache.NewMemoryRemote(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redisconn.Open(ctx, cfg.Redis.URL)
	if err != nil {
		if cfg.IsProduction() {
			log.Error("redis is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("redis unavailable, falling back to process-local cache tier", zap.Error(err))
		return cache.NewMemoryRemote(), nil
	}

	log.Info("cache tier: redis", zap.Duration("ttl", cfg.CacheTTL))
	return cache.NewRedisRemote(client), func() { _ = client.Close() }
}

func readyFunc(conn *mongodb.Conn) func() error {
	if conn == nil {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return conn.Ping(ctx)
	}
}
