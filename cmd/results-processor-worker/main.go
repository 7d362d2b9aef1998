package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/cache"
	"github.com/radieske/bolao-platform/internal/ranking-service/producer"
	"github.com/radieske/bolao-platform/internal/ranking-service/repo"
	"github.com/radieske/bolao-platform/internal/ranking-service/results"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
	"github.com/radieske/bolao-platform/internal/results-processor/consumer"
	sharedcache "github.com/radieske/bolao-platform/internal/shared/cache"
	"github.com/radieske/bolao-platform/internal/shared/config"
	"github.com/radieske/bolao-platform/internal/shared/db"
	"github.com/radieske/bolao-platform/internal/shared/kafka"
	"github.com/radieske/bolao-platform/internal/shared/logger"
	"github.com/radieske/bolao-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "results-processor-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(ctx, pg); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Consumer group results-processor no tópico match_results
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchResults, "results-processor")
	defer reader.Close()

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicStandingsUpdated)
	defer writer.Close()

	// Resultados que não puderam ser aplicados vão para a DLQ
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchResultsDLQ)
	defer dlq.Close()

	m := metrics.NewRanking()
	m.MustRegister(prometheus.DefaultRegisterer)

	store := repo.NewPostgres(pg)
	recalc := standings.NewRecalculator(log, store, cache.NewStandingsCache(redisClient), producer.NewKafkaPublisher(writer, cfg.TopicStandingsUpdated), m)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Results:    results.NewService(log, store, recalc),
		DLQ:        dlq,
		OnConsumed: func() { m.ResultEventsHandled.WithLabelValues("consumed").Inc() },
		OnError:    func(stage string) { m.ResultEventsHandled.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		return redisClient.Ping(ctx).Err()
	})
	go func() {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	defer metricsSrv.Close()

	log.Info("results-processor started", zap.String("topic", cfg.TopicMatchResults))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("results-processor stopped")
}
