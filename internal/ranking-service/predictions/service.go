package predictions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/shared/metrics"
)

const (
	defaultListLimit     = 50
	maxListLimit         = 100
	defaultUpcomingLimit = 5
	maxUpcomingLimit     = 50
)

// Store é a persistência de palpites e partidas usada pelo serviço
type Store interface {
	GetMatch(ctx context.Context, id int64) (model.Match, error)
	GroupExists(ctx context.Context, groupID int64) (bool, error)
	FindPrediction(ctx context.Context, userID, matchID int64, groupID *int64) (*model.Prediction, error)
	GetPrediction(ctx context.Context, id int64) (model.Prediction, error)
	// UpsertPrediction devolve ErrPredictionLocked se a linha existente estiver bloqueada
	UpsertPrediction(ctx context.Context, userID int64, in model.PredictionInput) (p model.Prediction, created bool, err error)
	UpdatePrediction(ctx context.Context, id int64, in model.PredictionInput) (model.Prediction, error)
	ListUserPredictions(ctx context.Context, userID int64, f model.PredictionFilter) ([]model.UserPrediction, error)
	ListUpcomingWithoutPrediction(ctx context.Context, userID int64, openAfter time.Time, limit int) ([]model.Match, error)
	ListMatchPredictions(ctx context.Context, matchID int64, groupID *int64) ([]model.MatchPrediction, error)
}

// Service valida e grava palpites respeitando a política de bloqueio
type Service struct {
	log     *zap.Logger
	store   Store
	window  time.Duration
	metrics *metrics.Ranking // opcional
	now     func() time.Time
}

func NewService(log *zap.Logger, store Store, lockWindow time.Duration, m *metrics.Ranking) *Service {
	if lockWindow <= 0 {
		lockWindow = DefaultLockWindow
	}
	return &Service{log: log, store: store, window: lockWindow, metrics: m, now: time.Now}
}

// LockWindow expõe a janela configurada (usada nas respostas da API)
func (s *Service) LockWindow() time.Duration { return s.window }

// Upsert cria o palpite do usuário para (partida, escopo) ou atualiza o existente.
// Corridas na mesma chave viram update pelo índice único.
func (s *Service) Upsert(ctx context.Context, userID int64, in model.PredictionInput) (model.Prediction, bool, error) {
	if err := in.Validate(); err != nil {
		s.count("rejected_invalid")
		return model.Prediction{}, false, err
	}

	m, err := s.store.GetMatch(ctx, in.MatchID)
	if err != nil {
		return model.Prediction{}, false, fmt.Errorf("get match %d: %w", in.MatchID, err)
	}

	if in.GroupID != nil {
		ok, err := s.store.GroupExists(ctx, *in.GroupID)
		if err != nil {
			return model.Prediction{}, false, fmt.Errorf("check group %d: %w", *in.GroupID, err)
		}
		if !ok {
			return model.Prediction{}, false, model.ErrGroupNotFound
		}
	}

	existing, err := s.store.FindPrediction(ctx, userID, in.MatchID, in.GroupID)
	if err != nil {
		return model.Prediction{}, false, fmt.Errorf("find prediction: %w", err)
	}

	if err := CanEdit(existing, m, s.now(), s.window); err != nil {
		s.count("rejected_lock")
		return model.Prediction{}, false, err
	}

	p, created, err := s.store.UpsertPrediction(ctx, userID, in)
	if err != nil {
		if errors.Is(err, model.ErrPredictionLocked) {
			s.count("rejected_lock")
			return model.Prediction{}, false, err
		}
		s.count("error")
		return model.Prediction{}, false, fmt.Errorf("upsert prediction: %w", err)
	}

	if created {
		s.count("created")
	} else {
		s.count("updated")
	}
	s.log.Debug("prediction saved",
		zap.Int64("prediction_id", p.ID),
		zap.Int64("user_id", userID),
		zap.Int64("match_id", in.MatchID),
		zap.Bool("created", created),
	)
	return p, created, nil
}

// UpdateByID edita placar (e advance_team, se informado) de um palpite do próprio usuário
func (s *Service) UpdateByID(ctx context.Context, userID, predictionID int64, homePred, awayPred int, advanceTeam string) (model.Prediction, error) {
	p, err := s.store.GetPrediction(ctx, predictionID)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("get prediction %d: %w", predictionID, err)
	}
	if p.UserID != userID {
		return model.Prediction{}, model.ErrForbidden
	}

	in := model.PredictionInput{
		MatchID:     p.MatchID,
		GroupID:     p.GroupID,
		HomePred:    homePred,
		AwayPred:    awayPred,
		AdvanceTeam: advanceTeam,
	}
	if err := in.Validate(); err != nil {
		s.count("rejected_invalid")
		return model.Prediction{}, err
	}

	m, err := s.store.GetMatch(ctx, p.MatchID)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("get match %d: %w", p.MatchID, err)
	}

	if err := CanEdit(&p, m, s.now(), s.window); err != nil {
		s.count("rejected_lock")
		return model.Prediction{}, err
	}

	updated, err := s.store.UpdatePrediction(ctx, predictionID, in)
	if err != nil {
		if errors.Is(err, model.ErrPredictionLocked) {
			s.count("rejected_lock")
			return model.Prediction{}, err
		}
		s.count("error")
		return model.Prediction{}, fmt.Errorf("update prediction %d: %w", predictionID, err)
	}
	s.count("updated")
	return updated, nil
}

// ListMine lista os palpites do usuário com a partida de cada um
func (s *Service) ListMine(ctx context.Context, userID int64, f model.PredictionFilter) ([]model.UserPrediction, error) {
	f.Limit = clampLimit(f.Limit, defaultListLimit, maxListLimit)
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.ListUserPredictions(ctx, userID, f)
}

// Upcoming lista partidas agendadas, ainda abertas, em que o usuário não palpitou
func (s *Service) Upcoming(ctx context.Context, userID int64, limit int) ([]model.Match, error) {
	limit = clampLimit(limit, defaultUpcomingLimit, maxUpcomingLimit)
	return s.store.ListUpcomingWithoutPrediction(ctx, userID, s.now().Add(s.window), limit)
}

// ForMatch lista os palpites de uma partida no escopo (groupID nil = global)
func (s *Service) ForMatch(ctx context.Context, matchID int64, groupID *int64) ([]model.MatchPrediction, error) {
	if _, err := s.store.GetMatch(ctx, matchID); err != nil {
		return nil, fmt.Errorf("get match %d: %w", matchID, err)
	}
	return s.store.ListMatchPredictions(ctx, matchID, groupID)
}

func clampLimit(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.PredictionWrites.WithLabelValues(outcome).Inc()
	}
}
