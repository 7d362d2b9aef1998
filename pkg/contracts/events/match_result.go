package events

import "time"

// Evento publicado no tópico "match_results"
// Scores só vêm preenchidos quando Status = "FT"
type MatchResult struct {
	MatchID      int64     `json:"match_id"`
	Status       string    `json:"status"` // SCHEDULED | LIVE | FT | CANCELLED | POSTPONED
	HomeScore    *int      `json:"home_score,omitempty"`
	AwayScore    *int      `json:"away_score,omitempty"`
	HomeScoreET  *int      `json:"home_score_et,omitempty"`
	AwayScoreET  *int      `json:"away_score_et,omitempty"`
	HomeScorePen *int      `json:"home_score_pen,omitempty"`
	AwayScorePen *int      `json:"away_score_pen,omitempty"`
	Source       string    `json:"source"` // "admin" | "feed"
	UpdatedAt    time.Time `json:"updated_at"`
}
