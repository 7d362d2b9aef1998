package dto

import (
	"time"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
)

// StandingsResponse: computed_at null e lista vazia quando o escopo nunca foi calculado
type StandingsResponse struct {
	Scope      string              `json:"scope"`
	Standings  []model.StandingRow `json:"standings"`
	ComputedAt *time.Time          `json:"computed_at"`
	MatchCount int                 `json:"match_count"`
}

// EmptyStandings é o placeholder de um escopo sem snapshot
func EmptyStandings(scope model.Scope) StandingsResponse {
	return StandingsResponse{Scope: scope.String(), Standings: []model.StandingRow{}}
}

func FromSnapshot(snap model.Snapshot, matchCount int) StandingsResponse {
	rows := snap.Standings
	if rows == nil {
		rows = []model.StandingRow{}
	}
	computed := snap.ComputedAt
	return StandingsResponse{
		Scope:      snap.Scope.String(),
		Standings:  rows,
		ComputedAt: &computed,
		MatchCount: matchCount,
	}
}

type PredictionResponse struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user_id"`
	MatchID       int64             `json:"match_id"`
	GroupID       *int64            `json:"group_id"`
	HomePred      int               `json:"home_pred"`
	AwayPred      int               `json:"away_pred"`
	AdvanceTeam   string            `json:"advance_team,omitempty"`
	PointsAwarded int               `json:"points_awarded"`
	ScoreDetails  model.Explanation `json:"score_details"`
	IsLocked      bool              `json:"is_locked"`
	LockedAt      *time.Time        `json:"locked_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func FromPrediction(p model.Prediction) PredictionResponse {
	return PredictionResponse{
		ID:            p.ID,
		UserID:        p.UserID,
		MatchID:       p.MatchID,
		GroupID:       p.GroupID,
		HomePred:      p.HomePred,
		AwayPred:      p.AwayPred,
		AdvanceTeam:   p.AdvanceTeam,
		PointsAwarded: p.PointsAwarded,
		ScoreDetails:  p.Explanation,
		IsLocked:      p.IsLocked,
		LockedAt:      p.LockedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type MatchResponse struct {
	ID           int64     `json:"id"`
	Stage        string    `json:"stage"`
	GroupName    string    `json:"group_name,omitempty"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	HomeTeamCode string    `json:"home_team_code,omitempty"`
	AwayTeamCode string    `json:"away_team_code,omitempty"`
	KickoffAtUTC time.Time `json:"kickoff_at_utc"`
	Status       string    `json:"status"`
	HomeScore    *int      `json:"home_score"`
	AwayScore    *int      `json:"away_score"`
	HomeScoreET  *int      `json:"home_score_et,omitempty"`
	AwayScoreET  *int      `json:"away_score_et,omitempty"`
	HomeScorePen *int      `json:"home_score_pen,omitempty"`
	AwayScorePen *int      `json:"away_score_pen,omitempty"`
	IsLocked     bool      `json:"is_locked"`
}

// FromMatch recebe o estado de bloqueio já avaliado no instante da resposta
func FromMatch(m model.Match, locked bool) MatchResponse {
	return MatchResponse{
		ID:           m.ID,
		Stage:        string(m.Stage),
		GroupName:    m.GroupName,
		HomeTeam:     m.HomeTeam,
		AwayTeam:     m.AwayTeam,
		HomeTeamCode: m.HomeTeamCode,
		AwayTeamCode: m.AwayTeamCode,
		KickoffAtUTC: m.KickoffAt,
		Status:       string(m.Status),
		HomeScore:    m.HomeScore,
		AwayScore:    m.AwayScore,
		HomeScoreET:  m.HomeScoreET,
		AwayScoreET:  m.AwayScoreET,
		HomeScorePen: m.HomeScorePen,
		AwayScorePen: m.AwayScorePen,
		IsLocked:     locked,
	}
}

// UserPredictionResponse é um item de GET /v1/my/predictions
type UserPredictionResponse struct {
	Prediction PredictionResponse `json:"prediction"`
	Match      MatchResponse      `json:"match"`
}

func FromUserPredictions(items []model.UserPrediction, isLocked func(model.Match) bool) []UserPredictionResponse {
	out := make([]UserPredictionResponse, 0, len(items))
	for _, it := range items {
		out = append(out, UserPredictionResponse{
			Prediction: FromPrediction(it.Prediction),
			Match:      FromMatch(it.Match, isLocked(it.Match)),
		})
	}
	return out
}

func FromMatches(ms []model.Match, isLocked func(model.Match) bool) []MatchResponse {
	out := make([]MatchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromMatch(m, isLocked(m)))
	}
	return out
}

type MatchPredictionResponse struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	HomePred int    `json:"home_pred"`
	AwayPred int    `json:"away_pred"`
	Points   int    `json:"points_awarded"`
}

func FromMatchPredictions(items []model.MatchPrediction) []MatchPredictionResponse {
	out := make([]MatchPredictionResponse, 0, len(items))
	for _, it := range items {
		out = append(out, MatchPredictionResponse(it))
	}
	return out
}

// MatchResultResponse devolve a partida atualizada e o resumo do recálculo disparado
type MatchResultResponse struct {
	Match         MatchResponse     `json:"match"`
	Recalculation standings.Summary `json:"recalculation"`
}
