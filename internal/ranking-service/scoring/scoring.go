// Package scoring converte um palpite em pontos dado o placar final da partida.
package scoring

import "github.com/radieske/bolao-platform/internal/ranking-service/model"

// Pontuação, em ordem decrescente de valor
const (
	PointsExact         = 5
	PointsResultBalance = 3
	PointsResultOnly    = 2
	PointsNone          = 0
)

type outcome int

const (
	outcomeDraw outcome = iota
	outcomeHome
	outcomeAway
)

func classify(home, away int) outcome {
	switch diff := home - away; {
	case diff > 0:
		return outcomeHome
	case diff < 0:
		return outcomeAway
	default:
		return outcomeDraw
	}
}

// CalculatePoints é pura: mesmas entradas, mesma saída.
// Partida não encerrada (ou sem placar) devolve (0, Explanation{}) e decided=false.
// Regras avaliadas em ordem, a primeira que casar vence:
//   - placar exato: 5, só Exact marcado
//   - vencedor/empate diferente: 0
//   - mesmo resultado e mesmo saldo: 3, senão 2
func CalculatePoints(p model.Prediction, m model.Match) (points int, exp model.Explanation, decided bool) {
	if !m.Finished() {
		return PointsNone, model.Explanation{}, false
	}

	home, away := *m.HomeScore, *m.AwayScore

	if p.HomePred == home && p.AwayPred == away {
		return PointsExact, model.Explanation{Exact: true}, true
	}

	if classify(p.HomePred, p.AwayPred) != classify(home, away) {
		return PointsNone, model.Explanation{}, true
	}

	if p.HomePred-p.AwayPred == home-away {
		return PointsResultBalance, model.Explanation{Result: true, Balance: true}, true
	}
	return PointsResultOnly, model.Explanation{Result: true}, true
}

// GoalDifferenceError é |saldo previsto - saldo real|, usado só pelo desempate completo.
// Devolve 0 para partidas sem placar.
func GoalDifferenceError(p model.Prediction, m model.Match) int {
	if !m.Finished() {
		return 0
	}
	d := (p.HomePred - p.AwayPred) - (*m.HomeScore - *m.AwayScore)
	if d < 0 {
		return -d
	}
	return d
}
