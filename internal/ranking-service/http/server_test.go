package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
)

var fixedNow = time.Date(2026, 6, 11, 18, 0, 0, 0, time.UTC)

type testAPI struct {
	api     *API
	reader  *fakeReader
	preds   *fakePredictions
	results *fakeResults
	recalc  *fakeRecalc
}

func newTestAPI() *testAPI {
	t := &testAPI{
		reader:  &fakeReader{snaps: map[string]model.Snapshot{}},
		preds:   &fakePredictions{},
		results: &fakeResults{},
		recalc:  &fakeRecalc{},
	}
	t.api = &API{
		Log:         zap.NewNop(),
		Standings:   t.reader,
		Predictions: t.preds,
		Results:     t.results,
		Recalc:      t.recalc,
		Now:         func() time.Time { return fixedNow },
	}
	return t
}

func (t *testAPI) do(method, path, body string, userID string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	rec := httptest.NewRecorder()
	t.api.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestStandingsAbsentRendersPlaceholder(t *testing.T) {
	ta := newTestAPI()

	rec := ta.do(http.MethodGet, "/v1/standings/global", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scope":"GLOBAL","standings":[],"computed_at":null,"match_count":0}`, rec.Body.String())

	rec = ta.do(http.MethodGet, "/v1/groups/7/standings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scope":"GROUP:7","standings":[],"computed_at":null,"match_count":0}`, rec.Body.String())
}

func TestStandingsPresentCarriesMatchCount(t *testing.T) {
	ta := newTestAPI()
	computed := time.Date(2026, 6, 11, 17, 0, 0, 0, time.UTC)
	ta.reader.snaps["GROUP:3"] = model.Snapshot{
		Scope:      model.GroupScope(3),
		ComputedAt: computed,
		Standings: []model.StandingRow{
			{UserID: 2, Name: "Bea", TotalPoints: 7, ExactMatches: 1, CorrectResults: 2, Rank: 1},
			{UserID: 1, Name: "Ana", TotalPoints: 0, Rank: 2},
		},
	}
	ta.reader.matchCount = 4

	rec := ta.do(http.MethodGet, "/v1/groups/3/standings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "GROUP:3", body["scope"])
	assert.Equal(t, float64(4), body["match_count"])
	assert.Equal(t, "2026-06-11T17:00:00Z", body["computed_at"])
	rows := body["standings"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, float64(2), rows[0].(map[string]any)["user_id"])
	assert.Equal(t, float64(2), rows[1].(map[string]any)["rank"])
}

func TestStandingsInvalidGroupID(t *testing.T) {
	ta := newTestAPI()
	rec := ta.do(http.MethodGet, "/v1/groups/abc/standings", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStandingsReadFailureIs500WithoutDetails(t *testing.T) {
	ta := newTestAPI()
	ta.reader.err = errors.New("connection refused")

	rec := ta.do(http.MethodGet, "/v1/standings/global", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestUpsertPredictionRequiresUser(t *testing.T) {
	ta := newTestAPI()
	for _, uid := range []string{"", "abc", "0", "-3"} {
		rec := ta.do(http.MethodPost, "/v1/predictions", `{"match_id":1,"home_pred":1,"away_pred":0}`, uid)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "user %q", uid)
	}
	assert.Empty(t, ta.preds.upserts)
}

func TestUpsertPredictionCreatedAndUpdated(t *testing.T) {
	ta := newTestAPI()
	gid := int64(5)
	ta.preds.upsertResult = model.Prediction{ID: 9, UserID: 42, MatchID: 1, GroupID: &gid, HomePred: 2, AwayPred: 0}
	ta.preds.created = true

	rec := ta.do(http.MethodPost, "/v1/predictions", `{"match_id":1,"group_id":5,"home_pred":2,"away_pred":0}`, "42")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ta.preds.upserts, 1)
	assert.Equal(t, int64(42), ta.preds.upserts[0].userID)
	assert.Equal(t, model.PredictionInput{MatchID: 1, GroupID: &gid, HomePred: 2, AwayPred: 0}, ta.preds.upserts[0].in)

	body := decode(t, rec)
	assert.Equal(t, float64(9), body["id"])
	assert.Equal(t, map[string]any{"exact": false, "result": false, "balance": false}, body["score_details"])

	ta.preds.created = false
	rec = ta.do(http.MethodPost, "/v1/predictions", `{"match_id":1,"group_id":5,"home_pred":3,"away_pred":0}`, "42")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpsertPredictionBodyValidation(t *testing.T) {
	cases := map[string]string{
		"missing scores": `{"match_id":1}`,
		"unknown field":  `{"match_id":1,"home_pred":1,"away_pred":1,"bogus":true}`,
		"bad json":       `{"match_id":`,
		"wrong type":     `{"match_id":"x","home_pred":1,"away_pred":1}`,
		"two values":     `{"match_id":1,"home_pred":1,"away_pred":1}{}`,
		"empty":          ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ta := newTestAPI()
			req := httptest.NewRequest(http.MethodPost, "/v1/predictions", strings.NewReader(body))
			req.Header.Set(UserHeader, "1")
			rec := httptest.NewRecorder()
			ta.api.Router().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, ta.preds.upserts)
		})
	}
}

func TestDomainErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{model.ErrInvalidPrediction, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", model.ErrMatchLocked), http.StatusConflict},
		{model.ErrPredictionLocked, http.StatusConflict},
		{model.ErrMatchNotFound, http.StatusNotFound},
		{model.ErrPredictionNotFound, http.StatusNotFound},
		{model.ErrGroupNotFound, http.StatusNotFound},
		{model.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		ta := newTestAPI()
		ta.preds.err = tc.err
		rec := ta.do(http.MethodPost, "/v1/predictions", `{"match_id":1,"home_pred":1,"away_pred":1}`, "1")
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestUpdatePrediction(t *testing.T) {
	ta := newTestAPI()

	rec := ta.do(http.MethodPut, "/v1/predictions/11", `{"home_pred":0,"away_pred":0}`, "42")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ta.preds.updates, 1)
	assert.Equal(t, updateCall{userID: 42, id: 11}, ta.preds.updates[0])

	rec = ta.do(http.MethodPut, "/v1/predictions/11", `{"home_pred":1}`, "42")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ta.preds.err = model.ErrForbidden
	rec = ta.do(http.MethodPut, "/v1/predictions/11", `{"home_pred":1,"away_pred":1}`, "43")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListMyPredictionsParsesFilter(t *testing.T) {
	ta := newTestAPI()
	kickoff := fixedNow.Add(5 * time.Minute)
	ta.preds.mine = []model.UserPrediction{{
		Prediction: model.Prediction{ID: 1, UserID: 42, MatchID: 3},
		Match:      model.Match{ID: 3, KickoffAt: kickoff, Status: model.MatchScheduled},
	}}

	rec := ta.do(http.MethodGet, "/v1/my/predictions?match_id=3&group_id=8&limit=20&offset=40", "", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ta.preds.filter.MatchID)
	require.NotNil(t, ta.preds.filter.GroupID)
	assert.Equal(t, int64(3), *ta.preds.filter.MatchID)
	assert.Equal(t, int64(8), *ta.preds.filter.GroupID)
	assert.Equal(t, 20, ta.preds.filter.Limit)
	assert.Equal(t, 40, ta.preds.filter.Offset)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	// kickoff em 5 min, janela de 10 min
	assert.Equal(t, true, items[0]["match"].(map[string]any)["is_locked"])

	rec = ta.do(http.MethodGet, "/v1/my/predictions?limit=-1", "", "42")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUpcoming(t *testing.T) {
	ta := newTestAPI()
	ta.preds.upcoming = []model.Match{{ID: 5, KickoffAt: fixedNow.Add(time.Hour), Status: model.MatchScheduled}}

	rec := ta.do(http.MethodGet, "/v1/my/upcoming?limit=3", "", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, ta.preds.limit)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, false, items[0]["is_locked"])
}

func TestListMatchPredictions(t *testing.T) {
	ta := newTestAPI()
	ta.preds.forMatch = []model.MatchPrediction{{UserID: 1, UserName: "Unknown", HomePred: 1, AwayPred: 0, Points: 5}}

	rec := ta.do(http.MethodGet, "/v1/matches/3/predictions?group_id=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"user_id":1,"user_name":"Unknown","home_pred":1,"away_pred":0,"points_awarded":5}]`, rec.Body.String())

	ta.preds.err = model.ErrMatchNotFound
	rec = ta.do(http.MethodGet, "/v1/matches/99/predictions", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplyMatchResult(t *testing.T) {
	ta := newTestAPI()
	two, one := 2, 1
	ta.results.match = model.Match{ID: 3, Status: model.MatchFinished, HomeScore: &two, AwayScore: &one, KickoffAt: fixedNow.Add(-2 * time.Hour)}
	ta.results.sum = standings.Summary{RunID: "r1", Succeeded: []string{"GLOBAL", "GROUP:2"}, Skipped: []string{}, Failed: []string{}}

	rec := ta.do(http.MethodPost, "/v1/admin/matches/3/result", `{"status":"FT","home_score":2,"away_score":1}`, "1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), ta.results.got.MatchID)
	assert.Equal(t, model.MatchFinished, ta.results.got.Status)

	body := decode(t, rec)
	recalc := body["recalculation"].(map[string]any)
	assert.Equal(t, "r1", recalc["run_id"])
	assert.Equal(t, true, body["match"].(map[string]any)["is_locked"])
}

func TestApplyMatchResultRejectsMissingStatus(t *testing.T) {
	ta := newTestAPI()
	rec := ta.do(http.MethodPost, "/v1/admin/matches/3/result", `{"home_score":2,"away_score":1}`, "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ta.results.err = model.ErrInvalidResult
	rec = ta.do(http.MethodPost, "/v1/admin/matches/3/result", `{"status":"FT"}`, "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecalculateAllReportsSummaryEvenOnFailure(t *testing.T) {
	ta := newTestAPI()
	ta.recalc.sum = standings.Summary{RunID: "r2", Succeeded: []string{"GLOBAL"}, Skipped: []string{}, Failed: []string{"GROUP:4"}}
	ta.recalc.err = errors.New("list active groups: boom")

	rec := ta.do(http.MethodPost, "/v1/admin/recalculate", "", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ta.recalc.calls)
	assert.JSONEq(t, `{"run_id":"r2","succeeded":["GLOBAL"],"skipped":[],"failed":["GROUP:4"]}`, rec.Body.String())
}

func TestAdminRoutesRequireUser(t *testing.T) {
	ta := newTestAPI()

	rec := ta.do(http.MethodPost, "/v1/admin/matches/3/result", `{"status":"FT","home_score":2,"away_score":1}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ta.results.got.MatchID, "resultado não pode ser aplicado sem usuário")

	rec = ta.do(http.MethodPost, "/v1/admin/recalculate", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ta.recalc.calls)
}
