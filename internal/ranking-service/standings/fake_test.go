package standings

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
)

// fakeStore simula o Postgres: cada WithinScopeTx trabalha numa área temporária
// que só é aplicada se fn não devolver erro.
type fakeStore struct {
	mu sync.Mutex

	matches   []model.Match
	preds     []model.Prediction
	users     map[int64]model.User
	groups    map[int64]bool // id -> ativo
	snapshots map[string]model.Snapshot
	scores    map[int64]model.ScoredPrediction

	replaceErr    map[string]error // erro forçado no ReplaceSnapshot por escopo
	listGroupsErr error
	txCalls       int

	active  map[string]int
	overlap bool
	txDelay time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int64]model.User{},
		groups:     map[int64]bool{},
		snapshots:  map[string]model.Snapshot{},
		scores:     map[int64]model.ScoredPrediction{},
		replaceErr: map[string]error{},
		active:     map[string]int{},
	}
}

func (f *fakeStore) WithinScopeTx(ctx context.Context, scope model.Scope, fn func(ScopeTx) error) error {
	key := scope.String()

	f.mu.Lock()
	f.txCalls++
	f.active[key]++
	if f.active[key] > 1 {
		f.overlap = true
	}
	delay := f.txDelay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active[key]--
		f.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	tx := &fakeTx{store: f, scope: scope}
	if err := fn(tx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range tx.scores {
		f.scores[s.PredictionID] = s
	}
	if tx.snapshot != nil {
		f.snapshots[key] = *tx.snapshot
	}
	return nil
}

func (f *fakeStore) ListActiveGroupIDs(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listGroupsErr != nil {
		return nil, f.listGroupsErr
	}
	ids := make([]int64, 0)
	for id, active := range f.groups {
		if active {
			ids = append(ids, id)
		}
	}
	sortInt64s(ids)
	return ids, nil
}

func (f *fakeStore) GroupIDsWithPredictionsFor(ctx context.Context, matchID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listGroupsErr != nil {
		return nil, f.listGroupsErr
	}
	seen := map[int64]bool{}
	ids := make([]int64, 0)
	for _, p := range f.preds {
		if p.MatchID == matchID && p.GroupID != nil && !seen[*p.GroupID] {
			seen[*p.GroupID] = true
			ids = append(ids, *p.GroupID)
		}
	}
	sortInt64s(ids)
	return ids, nil
}

func (f *fakeStore) snapshot(scope model.Scope) (model.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[scope.String()]
	return s, ok
}

// GetSnapshot/CountFinishedMatches deixam o fakeStore servir de fonte do Reader
func (f *fakeStore) GetSnapshot(ctx context.Context, scope model.Scope) (*model.Snapshot, error) {
	s, ok := f.snapshot(scope)
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeStore) CountFinishedMatches(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.matches {
		if m.Finished() {
			n++
		}
	}
	return n, nil
}

type fakeTx struct {
	store    *fakeStore
	scope    model.Scope
	scores   []model.ScoredPrediction
	snapshot *model.Snapshot
}

func (t *fakeTx) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.groups[groupID], nil
}

func (t *fakeTx) FinishedMatches(ctx context.Context) ([]model.Match, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := make([]model.Match, 0)
	for _, m := range t.store.matches {
		if m.Status == model.MatchFinished {
			out = append(out, m)
		}
	}
	return out, nil
}

func (t *fakeTx) PredictionsInScope(ctx context.Context, scope model.Scope) ([]model.Prediction, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	gid, isGroup := scope.GroupID()
	out := make([]model.Prediction, 0)
	for _, p := range t.store.preds {
		if isGroup && (p.GroupID == nil || *p.GroupID != gid) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *fakeTx) UsersByID(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := make(map[int64]model.User, len(ids))
	for _, id := range ids {
		if u, ok := t.store.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (t *fakeTx) SavePredictionScores(ctx context.Context, scored []model.ScoredPrediction) error {
	t.scores = append(t.scores, scored...)
	return nil
}

func (t *fakeTx) ReplaceSnapshot(ctx context.Context, snap model.Snapshot) error {
	t.store.mu.Lock()
	err := t.store.replaceErr[snap.Scope.String()]
	t.store.mu.Unlock()
	if err != nil {
		return err
	}
	t.snapshot = &snap
	return nil
}

// fakeCache imita o StandingsCache: escritas mais antigas que o último computed_at
// visto (snapshot ou lápide) são descartadas.
type fakeCache struct {
	mu            sync.Mutex
	items         map[string]model.Snapshot
	stamps        map[string]time.Time
	getErr        error
	setErr        error
	invalidateErr error
	sets          int
	invalidations int
	getHits       int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]model.Snapshot{}, stamps: map[string]time.Time{}}
}

func (c *fakeCache) GetSnapshot(ctx context.Context, scope model.Scope) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	s, ok := c.items[scope.String()]
	if !ok {
		return nil, nil
	}
	c.getHits++
	return &s, nil
}

func (c *fakeCache) SetSnapshot(ctx context.Context, snap model.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	key := snap.Scope.String()
	if cur, ok := c.stamps[key]; ok && cur.After(snap.ComputedAt) {
		return nil
	}
	c.items[key] = snap
	c.stamps[key] = snap.ComputedAt
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, scope model.Scope, asOf time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	key := scope.String()
	if cur, ok := c.stamps[key]; ok && cur.After(asOf) {
		return nil
	}
	delete(c.items, key)
	c.stamps[key] = asOf
	return nil
}

type published struct {
	runID string
	snap  model.Snapshot
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) PublishStandingsUpdated(ctx context.Context, runID string, snap model.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{runID: runID, snap: snap})
	return nil
}

type fakeSource struct {
	snapshots map[string]model.Snapshot
	finished  int
	err       error
	gets      int
}

func (s *fakeSource) GetSnapshot(ctx context.Context, scope model.Scope) (*model.Snapshot, error) {
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	snap, ok := s.snapshots[scope.String()]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *fakeSource) CountFinishedMatches(ctx context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.finished, nil
}

var errBoom = errors.New("boom")

func sortInt64s(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func ftMatch(id int64, home, away int) model.Match {
	return model.Match{ID: id, Status: model.MatchFinished, HomeScore: intPtr(home), AwayScore: intPtr(away)}
}

func scheduledMatch(id int64) model.Match {
	return model.Match{ID: id, Status: model.MatchScheduled}
}

func pred(id, userID, matchID int64, home, away int) model.Prediction {
	return model.Prediction{ID: id, UserID: userID, MatchID: matchID, HomePred: home, AwayPred: away}
}

func groupPred(id, userID, matchID, groupID int64, home, away int) model.Prediction {
	p := pred(id, userID, matchID, home, away)
	p.GroupID = int64Ptr(groupID)
	return p
}
