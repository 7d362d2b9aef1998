package events

import "time"

type StandingRow struct {
	UserID         int64  `json:"user_id"`
	Name           string `json:"name"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	ExactMatches   int    `json:"exact_matches"`
	CorrectResults int    `json:"correct_results"`
	TotalPoints    int    `json:"total_points"`
	Rank           int    `json:"rank"`
}

// Evento emitido após um recálculo bem-sucedido de um escopo.
type StandingsUpdated struct {
	RunID      string        `json:"run_id"`
	Scope      string        `json:"scope"` // "GLOBAL" | "GROUP:<id>"
	Standings  []StandingRow `json:"standings"`
	ComputedAt time.Time     `json:"computed_at"`
}
