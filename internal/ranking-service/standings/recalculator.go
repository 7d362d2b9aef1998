package standings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/shared/metrics"
)

// ScopeTx é a visão transacional de um escopo durante o recálculo.
// Tudo que é lido e escrito aqui entra em um único commit.
type ScopeTx interface {
	GroupExists(ctx context.Context, groupID int64) (bool, error)
	FinishedMatches(ctx context.Context) ([]model.Match, error)
	PredictionsInScope(ctx context.Context, scope model.Scope) ([]model.Prediction, error)
	UsersByID(ctx context.Context, ids []int64) (map[int64]model.User, error)
	SavePredictionScores(ctx context.Context, scored []model.ScoredPrediction) error
	ReplaceSnapshot(ctx context.Context, snap model.Snapshot) error
}

// Store abre a transação do escopo (com lock consultivo por escopo) e lista grupos ativos
type Store interface {
	WithinScopeTx(ctx context.Context, scope model.Scope, fn func(ScopeTx) error) error
	ListActiveGroupIDs(ctx context.Context) ([]int64, error)
	GroupIDsWithPredictionsFor(ctx context.Context, matchID int64) ([]int64, error)
}

// SnapshotCache é o espelho em Redis do standings_cache
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, scope model.Scope) (*model.Snapshot, error)
	SetSnapshot(ctx context.Context, snap model.Snapshot) error
	Invalidate(ctx context.Context, scope model.Scope, asOf time.Time) error
}

// Publisher anuncia um snapshot novo (tópico standings_updated)
type Publisher interface {
	PublishStandingsUpdated(ctx context.Context, runID string, snap model.Snapshot) error
}

// Summary resume uma rodada de vários escopos
type Summary struct {
	RunID     string   `json:"run_id"`
	Succeeded []string `json:"succeeded"`
	Skipped   []string `json:"skipped"`
	Failed    []string `json:"failed"`
}

// Recalculator é o único escritor de snapshots
type Recalculator struct {
	log     *zap.Logger
	store   Store
	cache   SnapshotCache   // opcional
	publ    Publisher       // opcional
	metrics *metrics.Ranking // opcional
	now     func() time.Time

	mu     sync.Mutex
	scopes map[string]*sync.Mutex
}

func NewRecalculator(log *zap.Logger, store Store, cache SnapshotCache, publ Publisher, m *metrics.Ranking) *Recalculator {
	return &Recalculator{
		log:     log,
		store:   store,
		cache:   cache,
		publ:    publ,
		metrics: m,
		now:     time.Now,
		scopes:  make(map[string]*sync.Mutex),
	}
}

// scopeLock devolve o mutex do escopo, criando sob demanda
func (r *Recalculator) scopeLock(scope model.Scope) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := scope.String()
	l, ok := r.scopes[key]
	if !ok {
		l = &sync.Mutex{}
		r.scopes[key] = l
	}
	return l
}

// Recalculate recalcula um escopo e substitui o snapshot inteiro.
// Devolve nil sem erro quando não há partida encerrada (snapshot fica como estava).
// Em erro a transação é desfeita e o snapshot anterior permanece.
func (r *Recalculator) Recalculate(ctx context.Context, scope model.Scope) (*model.Snapshot, error) {
	return r.recalculate(ctx, uuid.NewString(), scope)
}

func (r *Recalculator) recalculate(ctx context.Context, runID string, scope model.Scope) (*model.Snapshot, error) {
	l := r.scopeLock(scope)
	l.Lock()
	defer l.Unlock()

	start := time.Now()
	log := r.log.With(zap.String("run_id", runID), zap.String("scope", scope.String()))

	var snap *model.Snapshot
	err := r.store.WithinScopeTx(ctx, scope, func(tx ScopeTx) error {
		if gid, ok := scope.GroupID(); ok {
			exists, err := tx.GroupExists(ctx, gid)
			if err != nil {
				return fmt.Errorf("check group: %w", err)
			}
			if !exists {
				return model.ErrGroupNotFound
			}
		}

		matches, err := tx.FinishedMatches(ctx)
		if err != nil {
			return fmt.Errorf("load finished matches: %w", err)
		}
		finished := indexFinished(matches)

		preds, err := tx.PredictionsInScope(ctx, scope)
		if err != nil {
			return fmt.Errorf("load predictions: %w", err)
		}

		users, err := tx.UsersByID(ctx, distinctUserIDs(preds))
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}

		agg := Aggregate(preds, finished, users)

		if err := tx.SavePredictionScores(ctx, agg.Scored); err != nil {
			return fmt.Errorf("save prediction scores: %w", err)
		}

		// sem partida encerrada o snapshot fica como está; só zeramos pontuações antigas
		if len(finished) == 0 {
			return nil
		}

		s := model.Snapshot{Scope: scope, Standings: agg.Rows, ComputedAt: r.now().UTC()}
		if err := tx.ReplaceSnapshot(ctx, s); err != nil {
			return fmt.Errorf("replace snapshot: %w", err)
		}
		snap = &s
		return nil
	})

	r.observeDuration(scope, time.Since(start))

	if err != nil {
		log.Error("ranking recalculation failed", zap.Error(err))
		r.count(scope, "error")
		return nil, err
	}

	if snap == nil {
		log.Info("no finished matches; ranking left untouched")
		r.count(scope, "skipped")
		return nil, nil
	}

	// Redis e Kafka são best effort: o snapshot já está commitado no Postgres
	if r.cache != nil {
		if err := r.cache.SetSnapshot(ctx, *snap); err != nil {
			log.Warn("standings cache mirror failed", zap.Error(err))
			// lápide: leitores voltam ao Postgres em vez de servir o espelho antigo
			if err := r.cache.Invalidate(ctx, scope, snap.ComputedAt); err != nil {
				log.Error("standings cache invalidation failed; mirror may be stale", zap.Error(err))
			}
		}
	}
	if r.publ != nil {
		if err := r.publ.PublishStandingsUpdated(ctx, runID, *snap); err != nil {
			log.Warn("standings_updated publish failed", zap.Error(err))
		}
	}

	r.count(scope, "ok")
	log.Info("ranking recalculated", zap.Int("users", len(snap.Standings)), zap.Duration("took", time.Since(start)))
	return snap, nil
}

// RecalculateAll recalcula GLOBAL e depois cada grupo ativo, em sequência.
// A falha de um escopo não impede os demais; erro só é devolvido se não for possível listar os grupos.
func (r *Recalculator) RecalculateAll(ctx context.Context) (Summary, error) {
	groups, err := r.store.ListActiveGroupIDs(ctx)
	if err != nil {
		sum := r.runScopes(ctx, []model.Scope{model.GlobalScope()})
		return sum, fmt.Errorf("list active groups: %w", err)
	}
	return r.runScopes(ctx, scopesFor(groups)), nil
}

// RecalculateForMatch recalcula GLOBAL e os grupos que têm palpite na partida
func (r *Recalculator) RecalculateForMatch(ctx context.Context, matchID int64) (Summary, error) {
	groups, err := r.store.GroupIDsWithPredictionsFor(ctx, matchID)
	if err != nil {
		sum := r.runScopes(ctx, []model.Scope{model.GlobalScope()})
		return sum, fmt.Errorf("list groups for match %d: %w", matchID, err)
	}
	return r.runScopes(ctx, scopesFor(groups)), nil
}

func scopesFor(groupIDs []int64) []model.Scope {
	scopes := make([]model.Scope, 0, len(groupIDs)+1)
	scopes = append(scopes, model.GlobalScope())
	for _, id := range groupIDs {
		scopes = append(scopes, model.GroupScope(id))
	}
	return scopes
}

func (r *Recalculator) runScopes(ctx context.Context, scopes []model.Scope) Summary {
	sum := Summary{RunID: uuid.NewString(), Succeeded: []string{}, Skipped: []string{}, Failed: []string{}}

	for _, sc := range scopes {
		if ctx.Err() != nil {
			sum.Failed = append(sum.Failed, sc.String())
			continue
		}
		snap, err := r.recalculate(ctx, sum.RunID, sc)
		switch {
		case err != nil:
			sum.Failed = append(sum.Failed, sc.String())
		case snap == nil:
			sum.Skipped = append(sum.Skipped, sc.String())
		default:
			sum.Succeeded = append(sum.Succeeded, sc.String())
		}
	}

	r.log.Info("ranking run finished",
		zap.String("run_id", sum.RunID),
		zap.Int("succeeded", len(sum.Succeeded)),
		zap.Int("skipped", len(sum.Skipped)),
		zap.Int("failed", len(sum.Failed)),
	)
	return sum
}

// Err devolve um erro agregado quando algum escopo falhou
func (s Summary) Err() error {
	if len(s.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d scope(s) failed: %v", len(s.Failed), s.Failed)
}

func (r *Recalculator) count(scope model.Scope, outcome string) {
	if r.metrics != nil {
		r.metrics.Recalculations.WithLabelValues(scope.Kind(), outcome).Inc()
	}
}

func (r *Recalculator) observeDuration(scope model.Scope, d time.Duration) {
	if r.metrics != nil {
		r.metrics.RecalcDuration.WithLabelValues(scope.Kind()).Observe(d.Seconds())
	}
}
