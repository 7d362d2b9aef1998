package dto

import (
	"fmt"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
)

// UpsertPredictionRequest é o corpo de POST /v1/predictions.
// Placares são ponteiros para distinguir "0" de "ausente".
type UpsertPredictionRequest struct {
	MatchID     int64  `json:"match_id"`
	GroupID     *int64 `json:"group_id,omitempty"`
	HomePred    *int   `json:"home_pred"`
	AwayPred    *int   `json:"away_pred"`
	AdvanceTeam string `json:"advance_team,omitempty"`
}

// UpdatePredictionRequest é o corpo de PUT /v1/predictions/{id}
type UpdatePredictionRequest struct {
	HomePred    *int   `json:"home_pred"`
	AwayPred    *int   `json:"away_pred"`
	AdvanceTeam string `json:"advance_team,omitempty"`
}

// MatchResultRequest é o corpo de POST /v1/admin/matches/{id}/result
type MatchResultRequest struct {
	Status       string `json:"status"`
	HomeScore    *int   `json:"home_score"`
	AwayScore    *int   `json:"away_score"`
	HomeScoreET  *int   `json:"home_score_et,omitempty"`
	AwayScoreET  *int   `json:"away_score_et,omitempty"`
	HomeScorePen *int   `json:"home_score_pen,omitempty"`
	AwayScorePen *int   `json:"away_score_pen,omitempty"`
}

// ToMatchResult valida a presença dos campos obrigatórios; a coerência placar/status fica com o model
func (r MatchResultRequest) ToMatchResult(matchID int64) (model.MatchResult, error) {
	if r.Status == "" {
		return model.MatchResult{}, fmt.Errorf("%w: status is required", model.ErrInvalidResult)
	}
	return model.MatchResult{
		MatchID:      matchID,
		Status:       model.MatchStatus(r.Status),
		HomeScore:    r.HomeScore,
		AwayScore:    r.AwayScore,
		HomeScoreET:  r.HomeScoreET,
		AwayScoreET:  r.AwayScoreET,
		HomeScorePen: r.HomeScorePen,
		AwayScorePen: r.AwayScorePen,
	}, nil
}

func (r UpsertPredictionRequest) ToInput() (model.PredictionInput, error) {
	if r.HomePred == nil || r.AwayPred == nil {
		return model.PredictionInput{}, fmt.Errorf("%w: home_pred and away_pred are required", model.ErrInvalidPrediction)
	}
	return model.PredictionInput{
		MatchID:     r.MatchID,
		GroupID:     r.GroupID,
		HomePred:    *r.HomePred,
		AwayPred:    *r.AwayPred,
		AdvanceTeam: r.AdvanceTeam,
	}, nil
}
