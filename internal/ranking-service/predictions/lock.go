package predictions

import (
	"time"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
)

// DefaultLockWindow: palpites fecham 10 minutos antes do kickoff
const DefaultLockWindow = 10 * time.Minute

// IsLocked é verdadeiro a partir de kickoff - window, qualquer que seja o status da partida
func IsLocked(m model.Match, now time.Time, window time.Duration) bool {
	return !now.Before(m.KickoffAt.Add(-window))
}

// CanEdit aplica as duas travas, ambas precisam passar:
// o palpite existente não pode estar bloqueado e a partida não pode estar na janela de bloqueio.
func CanEdit(existing *model.Prediction, m model.Match, now time.Time, window time.Duration) error {
	if existing != nil && existing.IsLocked {
		return model.ErrPredictionLocked
	}
	if IsLocked(m, now, window) {
		return model.ErrMatchLocked
	}
	return nil
}
