package model

import "time"

// MatchStatus segue os códigos persistidos na tabela matches
type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchLive      MatchStatus = "LIVE"
	MatchFinished  MatchStatus = "FT"
	MatchCancelled MatchStatus = "CANCELLED"
	MatchPostponed MatchStatus = "POSTPONED"
)

// Valid informa se o status é um dos conhecidos
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchLive, MatchFinished, MatchCancelled, MatchPostponed:
		return true
	}
	return false
}

type MatchStage string

const (
	StageGroup        MatchStage = "GROUP"
	StageRoundOf32    MatchStage = "R32"
	StageRoundOf16    MatchStage = "R16"
	StageQuarterFinal MatchStage = "QF"
	StageSemiFinal    MatchStage = "SF"
	StageThirdPlace   MatchStage = "THIRD"
	StageFinal        MatchStage = "FINAL"
)

// Match é uma partida do torneio. HomeScore/AwayScore só existem quando Status = FT;
// prorrogação e pênaltis são guardados mas não entram na pontuação.
type Match struct {
	ID           int64
	Stage        MatchStage
	GroupName    string
	HomeTeam     string
	AwayTeam     string
	HomeTeamCode string
	AwayTeamCode string
	KickoffAt    time.Time
	Status       MatchStatus
	HomeScore    *int
	AwayScore    *int
	HomeScoreET  *int
	AwayScoreET  *int
	HomeScorePen *int
	AwayScorePen *int
	UpdatedAt    time.Time
}

// Finished indica partida encerrada com placar completo
func (m Match) Finished() bool {
	return m.Status == MatchFinished && m.HomeScore != nil && m.AwayScore != nil
}

// MatchResult é a atualização de resultado aplicada por admin ou feed
type MatchResult struct {
	MatchID      int64
	Status       MatchStatus
	HomeScore    *int
	AwayScore    *int
	HomeScoreET  *int
	AwayScoreET  *int
	HomeScorePen *int
	AwayScorePen *int
}

// Validate garante placar presente se e somente se a partida estiver encerrada
func (r MatchResult) Validate() error {
	if r.MatchID <= 0 || !r.Status.Valid() {
		return ErrInvalidResult
	}
	hasScore := r.HomeScore != nil && r.AwayScore != nil
	anyScore := r.HomeScore != nil || r.AwayScore != nil
	if r.Status == MatchFinished {
		if !hasScore || *r.HomeScore < 0 || *r.AwayScore < 0 {
			return ErrInvalidResult
		}
		return nil
	}
	if anyScore {
		return ErrInvalidResult
	}
	return nil
}
