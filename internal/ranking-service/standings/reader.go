package standings

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/shared/metrics"
)

// SnapshotSource é a fonte de verdade dos snapshots (tabela standings_cache)
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, scope model.Scope) (*model.Snapshot, error)
	CountFinishedMatches(ctx context.Context) (int, error)
}

// Reader serve classificações já calculadas; nunca dispara recálculo
type Reader struct {
	log     *zap.Logger
	source  SnapshotSource
	cache   SnapshotCache    // opcional
	metrics *metrics.Ranking // opcional
}

func NewReader(log *zap.Logger, source SnapshotSource, cache SnapshotCache, m *metrics.Ranking) *Reader {
	return &Reader{log: log, source: source, cache: cache, metrics: m}
}

// Get devolve o snapshot do escopo ou nil quando nunca foi calculado.
// Redis primeiro; em miss lê o Postgres e reabastece o Redis.
func (r *Reader) Get(ctx context.Context, scope model.Scope) (*model.Snapshot, error) {
	if r.cache != nil {
		snap, err := r.cache.GetSnapshot(ctx, scope)
		if err != nil {
			r.log.Warn("standings cache read failed", zap.String("scope", scope.String()), zap.Error(err))
		} else if snap != nil {
			r.count("redis")
			return snap, nil
		}
	}

	snap, err := r.source.GetSnapshot(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", scope, err)
	}
	if snap == nil {
		r.count("absent")
		return nil, nil
	}
	r.count("postgres")

	if r.cache != nil {
		if err := r.cache.SetSnapshot(ctx, *snap); err != nil {
			r.log.Warn("standings cache refill failed", zap.String("scope", scope.String()), zap.Error(err))
		}
	}
	return snap, nil
}

// MatchCount é o número de partidas encerradas no momento da leitura
func (r *Reader) MatchCount(ctx context.Context) (int, error) {
	n, err := r.source.CountFinishedMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("count finished matches: %w", err)
	}
	return n, nil
}

func (r *Reader) count(source string) {
	if r.metrics != nil {
		r.metrics.StandingsReads.WithLabelValues(source).Inc()
	}
}
