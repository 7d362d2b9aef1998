package producer

import (
	"context"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/shared/kafka"
	"github.com/radieske/bolao-platform/pkg/contracts/events"
)

// KafkaPublisher publica standings_updated após cada recálculo bem-sucedido.
// A chave da mensagem é o escopo, então atualizações de um mesmo escopo ficam ordenadas.
type KafkaPublisher struct {
	Writer kafka.MessageWriter
	Topic  string
}

func NewKafkaPublisher(w kafka.MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) PublishStandingsUpdated(ctx context.Context, runID string, snap model.Snapshot) error {
	return kafka.WriteJSON(ctx, p.Writer, snap.Scope.String(), ToEvent(runID, snap))
}

// ToEvent converte um snapshot no contrato público do tópico
func ToEvent(runID string, snap model.Snapshot) events.StandingsUpdated {
	rows := make([]events.StandingRow, 0, len(snap.Standings))
	for _, r := range snap.Standings {
		rows = append(rows, events.StandingRow{
			UserID:         r.UserID,
			Name:           r.Name,
			AvatarURL:      r.AvatarURL,
			ExactMatches:   r.ExactMatches,
			CorrectResults: r.CorrectResults,
			TotalPoints:    r.TotalPoints,
			Rank:           r.Rank,
		})
	}
	return events.StandingsUpdated{
		RunID:      runID,
		Scope:      snap.Scope.String(),
		Standings:  rows,
		ComputedAt: snap.ComputedAt,
	}
}
