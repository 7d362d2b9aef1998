package httpapi

import (
	"context"
	"time"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
)

type fakeReader struct {
	snaps      map[string]model.Snapshot
	matchCount int
	err        error
}

func (f *fakeReader) Get(ctx context.Context, scope model.Scope) (*model.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.snaps[scope.String()]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeReader) MatchCount(ctx context.Context) (int, error) { return f.matchCount, nil }

type upsertCall struct {
	userID int64
	in     model.PredictionInput
}

type updateCall struct {
	userID, id         int64
	homePred, awayPred int
	advanceTeam        string
}

type fakePredictions struct {
	upserts []upsertCall
	updates []updateCall
	filter  model.PredictionFilter
	limit   int

	upsertResult model.Prediction
	created      bool
	mine         []model.UserPrediction
	upcoming     []model.Match
	forMatch     []model.MatchPrediction
	err          error
}

func (f *fakePredictions) Upsert(ctx context.Context, userID int64, in model.PredictionInput) (model.Prediction, bool, error) {
	f.upserts = append(f.upserts, upsertCall{userID: userID, in: in})
	if f.err != nil {
		return model.Prediction{}, false, f.err
	}
	return f.upsertResult, f.created, nil
}

func (f *fakePredictions) UpdateByID(ctx context.Context, userID, predictionID int64, homePred, awayPred int, advanceTeam string) (model.Prediction, error) {
	f.updates = append(f.updates, updateCall{userID, predictionID, homePred, awayPred, advanceTeam})
	if f.err != nil {
		return model.Prediction{}, f.err
	}
	return model.Prediction{ID: predictionID, UserID: userID, HomePred: homePred, AwayPred: awayPred}, nil
}

func (f *fakePredictions) ListMine(ctx context.Context, userID int64, flt model.PredictionFilter) ([]model.UserPrediction, error) {
	f.filter = flt
	return f.mine, f.err
}

func (f *fakePredictions) Upcoming(ctx context.Context, userID int64, limit int) ([]model.Match, error) {
	f.limit = limit
	return f.upcoming, f.err
}

func (f *fakePredictions) ForMatch(ctx context.Context, matchID int64, groupID *int64) ([]model.MatchPrediction, error) {
	return f.forMatch, f.err
}

func (f *fakePredictions) LockWindow() time.Duration { return 10 * time.Minute }

type fakeResults struct {
	got   model.MatchResult
	match model.Match
	sum   standings.Summary
	err   error
}

func (f *fakeResults) Apply(ctx context.Context, r model.MatchResult) (model.Match, standings.Summary, error) {
	f.got = r
	return f.match, f.sum, f.err
}

type fakeRecalc struct {
	calls int
	sum   standings.Summary
	err   error
}

func (f *fakeRecalc) RecalculateAll(ctx context.Context) (standings.Summary, error) {
	f.calls++
	return f.sum, f.err
}
