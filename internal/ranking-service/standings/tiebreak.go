package standings

import (
	"context"
	"fmt"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
)

// ScopeReader é a parte somente-leitura de um escopo usada pelo desempate manual
type ScopeReader interface {
	FinishedMatches(ctx context.Context) ([]model.Match, error)
	PredictionsInScope(ctx context.Context, scope model.Scope) ([]model.Prediction, error)
	UsersByID(ctx context.Context, ids []int64) (map[int64]model.User, error)
}

// Tiebreak monta a classificação do escopo com o desempate completo (erro de saldo),
// sem gravar nada. Serve para conferência do operador.
func Tiebreak(ctx context.Context, src ScopeReader, scope model.Scope) ([]model.StandingRow, error) {
	matches, err := src.FinishedMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("finished matches: %w", err)
	}
	preds, err := src.PredictionsInScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("predictions in %s: %w", scope, err)
	}
	users, err := src.UsersByID(ctx, distinctUserIDs(preds))
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	finished := indexFinished(matches)
	agg := Aggregate(preds, finished, users)
	return OrderWithGoalDiffError(agg.Rows, preds, finished), nil
}
