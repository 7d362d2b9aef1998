package predictions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
)

type scopeKey struct {
	userID, matchID, groupID int64
}

func keyOf(userID, matchID int64, groupID *int64) scopeKey {
	k := scopeKey{userID: userID, matchID: matchID}
	if groupID != nil {
		k.groupID = *groupID
	}
	return k
}

// fakeStore reproduz o índice único (user, match, coalesce(group,0)) em memória
type fakeStore struct {
	mu      sync.Mutex
	matches map[int64]model.Match
	groups  map[int64]bool
	preds   map[int64]*model.Prediction
	byKey   map[scopeKey]int64
	users   map[int64]string
	nextID  int64

	upsertCalls int
	lastOpenAt  time.Time
	lastLimit   int
	lastFilter  model.PredictionFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches: map[int64]model.Match{},
		groups:  map[int64]bool{},
		preds:   map[int64]*model.Prediction{},
		byKey:   map[scopeKey]int64{},
		users:   map[int64]string{},
	}
}

func (f *fakeStore) GetMatch(ctx context.Context, id int64) (model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return model.Match{}, model.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeStore) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups[groupID], nil
}

func (f *fakeStore) FindPrediction(ctx context.Context, userID, matchID int64, groupID *int64) (*model.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byKey[keyOf(userID, matchID, groupID)]
	if !ok {
		return nil, nil
	}
	cp := *f.preds[id]
	return &cp, nil
}

func (f *fakeStore) GetPrediction(ctx context.Context, id int64) (model.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.preds[id]
	if !ok {
		return model.Prediction{}, model.ErrPredictionNotFound
	}
	return *p, nil
}

func (f *fakeStore) UpsertPrediction(ctx context.Context, userID int64, in model.PredictionInput) (model.Prediction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++

	k := keyOf(userID, in.MatchID, in.GroupID)
	if id, ok := f.byKey[k]; ok {
		p := f.preds[id]
		if p.IsLocked {
			return model.Prediction{}, false, model.ErrPredictionLocked
		}
		p.HomePred, p.AwayPred, p.AdvanceTeam = in.HomePred, in.AwayPred, in.AdvanceTeam
		return *p, false, nil
	}

	f.nextID++
	p := &model.Prediction{
		ID:          f.nextID,
		UserID:      userID,
		MatchID:     in.MatchID,
		GroupID:     in.GroupID,
		HomePred:    in.HomePred,
		AwayPred:    in.AwayPred,
		AdvanceTeam: in.AdvanceTeam,
	}
	f.preds[p.ID] = p
	f.byKey[k] = p.ID
	return *p, true, nil
}

func (f *fakeStore) UpdatePrediction(ctx context.Context, id int64, in model.PredictionInput) (model.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.preds[id]
	if !ok {
		return model.Prediction{}, model.ErrPredictionNotFound
	}
	if p.IsLocked {
		return model.Prediction{}, model.ErrPredictionLocked
	}
	p.HomePred, p.AwayPred = in.HomePred, in.AwayPred
	if in.AdvanceTeam != "" {
		p.AdvanceTeam = in.AdvanceTeam
	}
	return *p, nil
}

func (f *fakeStore) ListUserPredictions(ctx context.Context, userID int64, flt model.PredictionFilter) ([]model.UserPrediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = flt
	out := make([]model.UserPrediction, 0)
	for _, p := range f.preds {
		if p.UserID != userID {
			continue
		}
		out = append(out, model.UserPrediction{Prediction: *p, Match: f.matches[p.MatchID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prediction.ID < out[j].Prediction.ID })
	return out, nil
}

func (f *fakeStore) ListUpcomingWithoutPrediction(ctx context.Context, userID int64, openAfter time.Time, limit int) ([]model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpenAt, f.lastLimit = openAfter, limit
	out := make([]model.Match, 0)
	for _, m := range f.matches {
		if m.Status != model.MatchScheduled || !m.KickoffAt.After(openAfter) {
			continue
		}
		predicted := false
		for _, p := range f.preds {
			if p.UserID == userID && p.MatchID == m.ID {
				predicted = true
			}
		}
		if !predicted {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KickoffAt.Before(out[j].KickoffAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListMatchPredictions(ctx context.Context, matchID int64, groupID *int64) ([]model.MatchPrediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.MatchPrediction, 0)
	for _, p := range f.preds {
		if p.MatchID != matchID || keyOf(0, 0, p.GroupID) != keyOf(0, 0, groupID) {
			continue
		}
		name, ok := f.users[p.UserID]
		if !ok {
			name = "Unknown"
		}
		out = append(out, model.MatchPrediction{UserID: p.UserID, UserName: name, HomePred: p.HomePred, AwayPred: p.AwayPred, Points: p.PointsAwarded})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeStore) lock(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preds[id].IsLocked = true
}
