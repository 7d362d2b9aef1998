package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/dto"
	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/predictions"
)

func (a *API) getGlobalStandings(w http.ResponseWriter, r *http.Request) {
	a.writeStandings(w, r, model.GlobalScope())
}

func (a *API) getGroupStandings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a.writeStandings(w, r, model.GroupScope(id))
}

// writeStandings devolve o último snapshot; escopo nunca calculado vira lista vazia com computed_at null
func (a *API) writeStandings(w http.ResponseWriter, r *http.Request, scope model.Scope) {
	snap, err := a.Standings.Get(r.Context(), scope)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusOK, dto.EmptyStandings(scope))
		return
	}
	count, err := a.Standings.MatchCount(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromSnapshot(*snap, count))
}

func (a *API) upsertPrediction(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertPredictionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	in, err := req.ToInput()
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	p, created, err := a.Predictions.Upsert(r.Context(), userFrom(r.Context()), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.FromPrediction(p))
}

func (a *API) updatePrediction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dto.UpdatePredictionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.HomePred == nil || req.AwayPred == nil {
		badRequest(w, "home_pred and away_pred are required")
		return
	}

	p, err := a.Predictions.UpdateByID(r.Context(), userFrom(r.Context()), id, *req.HomePred, *req.AwayPred, req.AdvanceTeam)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromPrediction(p))
}

func (a *API) listMyPredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f model.PredictionFilter
	var err error
	if f.MatchID, err = optionalID(q.Get("match_id")); err != nil {
		badRequest(w, "invalid match_id")
		return
	}
	if f.GroupID, err = optionalID(q.Get("group_id")); err != nil {
		badRequest(w, "invalid group_id")
		return
	}
	if f.Limit, err = optionalInt(q.Get("limit")); err != nil {
		badRequest(w, "invalid limit")
		return
	}
	if f.Offset, err = optionalInt(q.Get("offset")); err != nil {
		badRequest(w, "invalid offset")
		return
	}

	items, err := a.Predictions.ListMine(r.Context(), userFrom(r.Context()), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromUserPredictions(items, a.isLocked))
}

func (a *API) listUpcoming(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalInt(r.URL.Query().Get("limit"))
	if err != nil {
		badRequest(w, "invalid limit")
		return
	}
	ms, err := a.Predictions.Upcoming(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMatches(ms, a.isLocked))
}

func (a *API) listMatchPredictions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	groupID, err := optionalID(r.URL.Query().Get("group_id"))
	if err != nil {
		badRequest(w, "invalid group_id")
		return
	}
	items, err := a.Predictions.ForMatch(r.Context(), id, groupID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMatchPredictions(items))
}

// applyMatchResult grava o resultado e recalcula global + grupos afetados
func (a *API) applyMatchResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dto.MatchResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := req.ToMatchResult(id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	m, sum, err := a.Results.Apply(r.Context(), res)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MatchResultResponse{
		Match:         dto.FromMatch(m, a.isLocked(m)),
		Recalculation: sum,
	})
}

// recalculateAll responde 200 mesmo com escopos falhos; o resumo diz quais
func (a *API) recalculateAll(w http.ResponseWriter, r *http.Request) {
	sum, err := a.Recalc.RecalculateAll(r.Context())
	if err != nil {
		a.logger().Warn("recalculate all finished with errors", zap.String("run_id", sum.RunID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) isLocked(m model.Match) bool {
	return predictions.IsLocked(m, a.now(), a.Predictions.LockWindow())
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func optionalID(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, strconv.ErrSyntax
	}
	return &id, nil
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
