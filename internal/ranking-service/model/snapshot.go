package model

import "time"

// StandingRow é uma linha da classificação; o layout JSON é o persistido em standings_cache
type StandingRow struct {
	UserID         int64  `json:"user_id"`
	Name           string `json:"name"`
	AvatarURL      string `json:"avatar_url"`
	ExactMatches   int    `json:"exact_matches"`
	CorrectResults int    `json:"correct_results"`
	TotalPoints    int    `json:"total_points"`
	Rank           int    `json:"rank"`
}

// Snapshot é a última classificação calculada de um escopo
type Snapshot struct {
	Scope      Scope
	Standings  []StandingRow
	ComputedAt time.Time
}
