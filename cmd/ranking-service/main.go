package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/bolao-platform/internal/ranking-service/cache"
	httpapi "github.com/radieske/bolao-platform/internal/ranking-service/http"
	"github.com/radieske/bolao-platform/internal/ranking-service/predictions"
	"github.com/radieske/bolao-platform/internal/ranking-service/producer"
	"github.com/radieske/bolao-platform/internal/ranking-service/repo"
	"github.com/radieske/bolao-platform/internal/ranking-service/results"
	"github.com/radieske/bolao-platform/internal/ranking-service/scheduler"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
	sharedcache "github.com/radieske/bolao-platform/internal/shared/cache"
	"github.com/radieske/bolao-platform/internal/shared/config"
	"github.com/radieske/bolao-platform/internal/shared/db"
	"github.com/radieske/bolao-platform/internal/shared/kafka"
	"github.com/radieske/bolao-platform/internal/shared/logger"
	"github.com/radieske/bolao-platform/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ranking-service"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// conecta com db Postgres e aplica o schema
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("failed to migrate schema", zap.Error(err))
	}
	log.Info("postgres connected")

	// conecta com cache Redis (espelho dos snapshots)
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	// writer Kafka para standings_updated
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicStandingsUpdated)
	defer writer.Close()
	log.Info("kafka writer ready", zap.String("topic", cfg.TopicStandingsUpdated))

	m := metrics.NewRanking()
	m.MustRegister(prometheus.DefaultRegisterer)

	store := repo.NewPostgres(pg)
	snapCache := cache.NewStandingsCache(redisClient)
	recalc := standings.NewRecalculator(log, store, snapCache, producer.NewKafkaPublisher(writer, cfg.TopicStandingsUpdated), m)
	reader := standings.NewReader(log, store, snapCache, m)
	predSvc := predictions.NewService(log, store, cfg.LockWindow, m)
	resultSvc := results.NewService(log, store, recalc)

	api := &httpapi.API{
		Log:         log,
		Standings:   reader,
		Predictions: predSvc,
		Results:     resultSvc,
		Recalc:      recalc,
	}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// healthz: valida dependências críticas
	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	sched := scheduler.New(log, recalc, cfg.RecalcInterval, cfg.RecalcTimeout)
	if cfg.EnableScheduler {
		if err := sched.Start(); err != nil {
			log.Fatal("failed to start scheduler", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		return serve(apiSrv)
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		return serve(metricsSrv)
	})

	// encerra tudo no sinal ou na primeira falha
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if cfg.EnableScheduler {
			sched.Stop(shCtx)
		}
		_ = apiSrv.Shutdown(shCtx)
		_ = metricsSrv.Shutdown(shCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("ranking-service stopped with error", zap.Error(err))
		return
	}
	log.Info("ranking-service stopped")
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}
