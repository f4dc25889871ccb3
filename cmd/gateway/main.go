package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rest-gateway/internal/accounts"
	"rest-gateway/internal/config"
	"rest-gateway/internal/logging"
	"rest-gateway/middleware/ratelimit/domain"
	"rest-gateway/middleware/ratelimit/infra"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	log, err := logging.New("gateway", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("logger error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openAccounts(ctx, cfg.Accounts)
	if err != nil {
		log.Fatalf("accounts store error: %v", err)
	}
	defer closeStore()

	var (
		extra   []domain.StatsStore
		cluster *infra.RedisStatsStore
	)
	if cfg.Stats.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.RedisAddr,
			Password: cfg.Stats.RedisPassword,
			DB:       cfg.Stats.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			log.Fatalf("redis stats ping error: %v", err)
		}

		redisStats := infra.NewRedisStatsStore(rdb, infra.RedisStatsConfig{
			Prefix:    cfg.Stats.Prefix,
			TTL:       cfg.Stats.TTL,
			Bucket:    cfg.Stats.Bucket,
			TrackKeys: cfg.Stats.TrackKeys,
		})
		cluster = redisStats
		async := infra.NewAsyncStats(redisStats, 4096, time.Second, func(err error) {
			log.WithError(err).Debug("redis stats write failed")
		})
		async.Start()
		defer async.Close()
		extra = append(extra, async)
	}

	a, err := newApp(cfg, log, store, extra...)
	if err != nil {
		log.Fatalf("gateway setup error: %v", err)
	}
	a.cluster = cluster

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Stats sinks are closed by the deferred calls above, so main must not
	// return before in-flight handlers have finished.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"listen":   cfg.Server.ListenAddr,
		"upstream": cfg.Upstream.URL.String(),
	}).Info("gateway listening")
	log.WithFields(logrus.Fields{
		"base_max":        cfg.RateLimit.MaxRequests,
		"pro_max":         domain.TierProUser.Ceiling(cfg.RateLimit.MaxRequests),
		"partner_secrets": len(cfg.RateLimit.PartnerPasswords),
		"pro_tier":        cfg.Auth.JWTSecret != "",
		"account_store":   cfg.Accounts.Store,
	}).Info("rate limit")
	log.WithFields(logrus.Fields{
		"enabled":    cfg.Stats.Enabled,
		"redis_addr": cfg.Stats.RedisAddr,
		"bucket":     cfg.Stats.Bucket,
		"ttl":        cfg.Stats.TTL.String(),
		"track_keys": cfg.Stats.TrackKeys,
	}).Info("rate stats")
	log.WithFields(logrus.Fields{
		"max":             cfg.Concurrency.Max,
		"acquire_timeout": cfg.Concurrency.Timeout.String(),
	}).Info("concurrency")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	<-shutdownDone
	log.Info("gateway stopped")
}

func openAccounts(ctx context.Context, cfg config.AccountsConfig) (accounts.Store, func(), error) {
	switch cfg.Store {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := accounts.Migrate(pingCtx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return accounts.NewPostgresStore(db), func() { _ = db.Close() }, nil
	default:
		return accounts.NewMemoryStore(), func() {}, nil
	}
}
