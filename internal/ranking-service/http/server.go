package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
)

// StandingsReader lê snapshots já calculados; nunca recalcula
type StandingsReader interface {
	Get(ctx context.Context, scope model.Scope) (*model.Snapshot, error)
	MatchCount(ctx context.Context) (int, error)
}

type PredictionService interface {
	Upsert(ctx context.Context, userID int64, in model.PredictionInput) (model.Prediction, bool, error)
	UpdateByID(ctx context.Context, userID, predictionID int64, homePred, awayPred int, advanceTeam string) (model.Prediction, error)
	ListMine(ctx context.Context, userID int64, f model.PredictionFilter) ([]model.UserPrediction, error)
	Upcoming(ctx context.Context, userID int64, limit int) ([]model.Match, error)
	ForMatch(ctx context.Context, matchID int64, groupID *int64) ([]model.MatchPrediction, error)
	LockWindow() time.Duration
}

type ResultService interface {
	Apply(ctx context.Context, r model.MatchResult) (model.Match, standings.Summary, error)
}

type Recalculator interface {
	RecalculateAll(ctx context.Context) (standings.Summary, error)
}

// API expõe os endpoints REST do bolão: classificação, palpites e administração de resultados
type API struct {
	Log         *zap.Logger
	Standings   StandingsReader
	Predictions PredictionService
	Results     ResultService
	Recalc      Recalculator
	Now         func() time.Time // relógio usado para is_locked nas respostas
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	// Leitura pública da classificação
	r.Get("/v1/standings/global", a.getGlobalStandings)
	r.Get("/v1/groups/{id}/standings", a.getGroupStandings)
	r.Get("/v1/matches/{id}/predictions", a.listMatchPredictions)

	// Rotas do usuário autenticado (X-User-ID)
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/v1/predictions", a.upsertPrediction)
		r.Put("/v1/predictions/{id}", a.updatePrediction)
		r.Get("/v1/my/predictions", a.listMyPredictions)
		r.Get("/v1/my/upcoming", a.listUpcoming)
	})

	// Administração: exige X-User-ID; o papel de admin é validado no gateway
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/v1/admin/matches/{id}/result", a.applyMatchResult)
		r.Post("/v1/admin/recalculate", a.recalculateAll)
	})
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *API) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}
