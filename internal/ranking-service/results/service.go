package results

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
)

// MatchStore grava o resultado de uma partida
type MatchStore interface {
	ApplyMatchResult(ctx context.Context, r model.MatchResult) (model.Match, error)
}

// Recalculator recalcula os escopos afetados por uma partida
type Recalculator interface {
	RecalculateForMatch(ctx context.Context, matchID int64) (standings.Summary, error)
}

// Service aplica resultados vindos do admin (HTTP) ou do feed (Kafka)
// e recalcula GLOBAL e os grupos com palpites na partida
type Service struct {
	log    *zap.Logger
	store  MatchStore
	recalc Recalculator
}

func NewService(log *zap.Logger, store MatchStore, recalc Recalculator) *Service {
	return &Service{log: log, store: store, recalc: recalc}
}

// Apply falha alto na validação e na gravação do resultado.
// Falhas de recálculo ficam no Summary (o resultado já está gravado).
func (s *Service) Apply(ctx context.Context, r model.MatchResult) (model.Match, standings.Summary, error) {
	if err := r.Validate(); err != nil {
		return model.Match{}, standings.Summary{}, err
	}

	m, err := s.store.ApplyMatchResult(ctx, r)
	if err != nil {
		return model.Match{}, standings.Summary{}, fmt.Errorf("apply result for match %d: %w", r.MatchID, err)
	}

	s.log.Info("match result applied",
		zap.Int64("match_id", m.ID),
		zap.String("status", string(m.Status)),
	)

	sum, err := s.recalc.RecalculateForMatch(ctx, m.ID)
	if err != nil {
		s.log.Error("recalculation after result partially failed", zap.Int64("match_id", m.ID), zap.Error(err))
	}
	return m, sum, nil
}
