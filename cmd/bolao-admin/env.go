package main

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/repo"
	sharedcache "github.com/radieske/bolao-platform/internal/shared/cache"
	"github.com/radieske/bolao-platform/internal/shared/config"
	"github.com/radieske/bolao-platform/internal/shared/db"
	"github.com/radieske/bolao-platform/internal/shared/kafka"
	"github.com/radieske/bolao-platform/internal/shared/logger"
)

// adminEnv guarda as conexões abertas por um comando
type adminEnv struct {
	log    *zap.Logger
	db     *sql.DB
	pg     *repo.Postgres
	redis  *redis.Client // só com withMirrors
	writer *kafka.Writer // só com withMirrors
}

// connect abre o Postgres e, para comandos que gravam snapshots, o Redis e o writer Kafka
func connect(cfg config.Config, withMirrors bool) (*adminEnv, error) {
	log, err := logger.New("bolao-admin", cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	env := &adminEnv{log: log}

	env.db, err = db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	env.pg = repo.NewPostgres(env.db)

	if withMirrors {
		env.redis, err = sharedcache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			env.close()
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		env.writer = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicStandingsUpdated)
	}
	return env, nil
}

func (e *adminEnv) close() {
	if e.writer != nil {
		_ = e.writer.Close()
	}
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.log.Sync()
}
