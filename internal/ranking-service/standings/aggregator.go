package standings

import (
	"sort"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/scoring"
)

// tally acumula os números de um usuário durante uma única agregação
type tally struct {
	userID int64
	total  int
	exact  int
	result int
}

// Aggregation é o resultado puro de uma agregação de escopo
type Aggregation struct {
	Rows   []model.StandingRow
	Scored []model.ScoredPrediction
}

// Aggregate pontua os palpites contra as partidas encerradas e monta a classificação ordenada.
// Todo usuário com palpite no escopo ganha linha, mesmo com zero pontos; usuários que não
// existem em users são descartados. O acumulador vive só nesta chamada.
func Aggregate(preds []model.Prediction, finished map[int64]model.Match, users map[int64]model.User) Aggregation {
	tallies := make(map[int64]*tally)
	order := make([]int64, 0)
	scored := make([]model.ScoredPrediction, 0, len(preds))

	for _, p := range preds {
		t, ok := tallies[p.UserID]
		if !ok {
			t = &tally{userID: p.UserID}
			tallies[p.UserID] = t
			order = append(order, p.UserID)
		}

		m, ok := finished[p.MatchID]
		if !ok {
			scored = appendReset(scored, p)
			continue
		}
		points, exp, decided := scoring.CalculatePoints(p, m)
		if !decided {
			scored = appendReset(scored, p)
			continue
		}

		t.total += points
		if exp.Exact {
			t.exact++
		}
		if exp.Result {
			t.result++
		}
		scored = append(scored, model.ScoredPrediction{PredictionID: p.ID, Points: points, Explanation: exp})
	}

	rows := make([]model.StandingRow, 0, len(order))
	for _, uid := range order {
		u, ok := users[uid]
		if !ok {
			continue
		}
		t := tallies[uid]
		rows = append(rows, model.StandingRow{
			UserID:         uid,
			Name:           u.Name,
			AvatarURL:      u.AvatarURL,
			ExactMatches:   t.exact,
			CorrectResults: t.result,
			TotalPoints:    t.total,
		})
	}

	sortRows(rows)
	assignRanks(rows)

	return Aggregation{Rows: rows, Scored: scored}
}

// appendReset zera a pontuação de um palpite cuja partida deixou de estar encerrada
// (ex.: resultado corrigido de FT para LIVE). Palpites já zerados não geram escrita.
func appendReset(scored []model.ScoredPrediction, p model.Prediction) []model.ScoredPrediction {
	if p.PointsAwarded == 0 && p.Explanation == (model.Explanation{}) {
		return scored
	}
	return append(scored, model.ScoredPrediction{PredictionID: p.ID})
}

// sortRows: pontos desc, exatos desc, resultados desc, user_id asc
func sortRows(rows []model.StandingRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.ExactMatches != b.ExactMatches {
			return a.ExactMatches > b.ExactMatches
		}
		if a.CorrectResults != b.CorrectResults {
			return a.CorrectResults > b.CorrectResults
		}
		return a.UserID < b.UserID
	})
}

// assignRanks numera 1..n pela posição; empates completos recebem ranks distintos
func assignRanks(rows []model.StandingRow) {
	for i := range rows {
		rows[i].Rank = i + 1
	}
}

// OrderWithGoalDiffError reordena uma classificação com o desempate completo:
// pontos, exatos, resultados e, por fim, soma do erro absoluto de saldo (menor é melhor).
// Não é usado pelo recálculo automático; devolve uma cópia re-ranqueada.
func OrderWithGoalDiffError(rows []model.StandingRow, preds []model.Prediction, finished map[int64]model.Match) []model.StandingRow {
	goalErr := make(map[int64]int, len(rows))
	for _, p := range preds {
		if m, ok := finished[p.MatchID]; ok {
			goalErr[p.UserID] += scoring.GoalDifferenceError(p, m)
		}
	}

	out := make([]model.StandingRow, len(rows))
	copy(out, rows)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.ExactMatches != b.ExactMatches {
			return a.ExactMatches > b.ExactMatches
		}
		if a.CorrectResults != b.CorrectResults {
			return a.CorrectResults > b.CorrectResults
		}
		if goalErr[a.UserID] != goalErr[b.UserID] {
			return goalErr[a.UserID] < goalErr[b.UserID]
		}
		return a.UserID < b.UserID
	})
	assignRanks(out)
	return out
}

// indexFinished indexa as partidas encerradas por id, ignorando as sem placar
func indexFinished(matches []model.Match) map[int64]model.Match {
	out := make(map[int64]model.Match, len(matches))
	for _, m := range matches {
		if m.Finished() {
			out[m.ID] = m
		}
	}
	return out
}

func distinctUserIDs(preds []model.Prediction) []int64 {
	seen := make(map[int64]struct{}, len(preds))
	ids := make([]int64, 0)
	for _, p := range preds {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}
	return ids
}
