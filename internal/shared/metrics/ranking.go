package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ranking agrupa os coletores do motor de pontuação/classificação.
// Cada binário cria o seu e registra no registry padrão via MustRegister.
type Ranking struct {
	Recalculations      *prometheus.CounterVec   // kind=global|group, outcome=ok|error|skipped
	RecalcDuration      *prometheus.HistogramVec // kind
	PredictionWrites    *prometheus.CounterVec   // outcome=created|updated|rejected_lock|rejected_invalid|error
	StandingsReads      *prometheus.CounterVec   // source=redis|postgres|absent
	ResultEventsHandled *prometheus.CounterVec   // stage=consumed|read|decode|apply|retry|recalc|dlq
}

func NewRanking() *Ranking {
	return &Ranking{
		Recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bolao_ranking_recalculations_total",
			Help: "recálculos de classificação por tipo de escopo e resultado",
		}, []string{"kind", "outcome"}),
		RecalcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bolao_ranking_recalc_duration_seconds",
			Help:    "duração de um recálculo de escopo",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		PredictionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bolao_prediction_writes_total",
			Help: "escritas de palpites por resultado",
		}, []string{"outcome"}),
		StandingsReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bolao_standings_reads_total",
			Help: "leituras de classificação por origem",
		}, []string{"source"}),
		ResultEventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bolao_result_events_total",
			Help: "eventos de resultado processados por estágio",
		}, []string{"stage"}),
	}
}

// MustRegister registra todos os coletores no registerer informado
func (m *Ranking) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.Recalculations, m.RecalcDuration, m.PredictionWrites, m.StandingsReads, m.ResultEventsHandled)
}
