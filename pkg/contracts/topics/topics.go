package topics

const (
	// Resultados de partidas (admin/feeds) que disparam recálculo
	MatchResults = "match_results"

	// Snapshots de classificação recém-calculados
	StandingsUpdated = "standings_updated"

	// DLQ
	MatchResultsDLQ = "match_results_dlq"
)
