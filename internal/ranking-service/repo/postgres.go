package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/predictions"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
)

// Postgres implementa a persistência do ranking: partidas, palpites e standings_cache
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	_ standings.Store          = (*Postgres)(nil)
	_ standings.SnapshotSource = (*Postgres)(nil)
	_ standings.ScopeReader    = (*Postgres)(nil)
	_ predictions.Store        = (*Postgres)(nil)
	_ standings.ScopeTx        = (*scopeTx)(nil)
)

// queryer cobre *sql.DB e *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const matchColumns = `m.id, m.stage, COALESCE(m.group_name,''), m.home_team, m.away_team,
	COALESCE(m.home_team_code,''), COALESCE(m.away_team_code,''), m.kickoff_at_utc, m.status,
	m.home_score, m.away_score, m.home_score_et, m.away_score_et, m.home_score_pen, m.away_score_pen,
	m.updated_at`

const predictionColumns = `p.id, p.user_id, p.match_id, p.group_id, p.home_pred, p.away_pred,
	COALESCE(p.advance_team,''), p.points_awarded, p.score_exact, p.score_result, p.score_balance,
	p.is_locked, p.locked_at, p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(s rowScanner) (model.Match, error) {
	var m model.Match
	var stage, status string
	var hs, as, hsET, asET, hsPen, asPen sql.NullInt64
	if err := s.Scan(&m.ID, &stage, &m.GroupName, &m.HomeTeam, &m.AwayTeam,
		&m.HomeTeamCode, &m.AwayTeamCode, &m.KickoffAt, &status,
		&hs, &as, &hsET, &asET, &hsPen, &asPen, &m.UpdatedAt); err != nil {
		return model.Match{}, err
	}
	m.Stage = model.MatchStage(stage)
	m.Status = model.MatchStatus(status)
	m.KickoffAt = m.KickoffAt.UTC()
	m.HomeScore, m.AwayScore = intPtr(hs), intPtr(as)
	m.HomeScoreET, m.AwayScoreET = intPtr(hsET), intPtr(asET)
	m.HomeScorePen, m.AwayScorePen = intPtr(hsPen), intPtr(asPen)
	return m, nil
}

func scanPrediction(s rowScanner, extra ...any) (model.Prediction, error) {
	var p model.Prediction
	var groupID sql.NullInt64
	var lockedAt sql.NullTime
	dest := []any{&p.ID, &p.UserID, &p.MatchID, &groupID, &p.HomePred, &p.AwayPred,
		&p.AdvanceTeam, &p.PointsAwarded, &p.Explanation.Exact, &p.Explanation.Result, &p.Explanation.Balance,
		&p.IsLocked, &lockedAt, &p.CreatedAt, &p.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return model.Prediction{}, err
	}
	if groupID.Valid {
		g := groupID.Int64
		p.GroupID = &g
	}
	if lockedAt.Valid {
		t := lockedAt.Time
		p.LockedAt = &t
	}
	return p, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// nullable converte ponteiros em valores aceitos pelo driver (nil vira NULL)
func nullable[T int | int64](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// Partidas

func (p *Postgres) GetMatch(ctx context.Context, id int64) (model.Match, error) {
	m, err := scanMatch(p.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, model.ErrMatchNotFound
	}
	if err != nil {
		return model.Match{}, err
	}
	return m, nil
}

// ApplyMatchResult grava status e placares; o CHECK da tabela garante placar sse FT
func (p *Postgres) ApplyMatchResult(ctx context.Context, r model.MatchResult) (model.Match, error) {
	m, err := scanMatch(p.db.QueryRowContext(ctx, `
		UPDATE matches m SET
			status=$2, home_score=$3, away_score=$4,
			home_score_et=$5, away_score_et=$6, home_score_pen=$7, away_score_pen=$8,
			updated_at=NOW()
		WHERE m.id=$1
		RETURNING `+matchColumns,
		r.MatchID, string(r.Status), nullable(r.HomeScore), nullable(r.AwayScore),
		nullable(r.HomeScoreET), nullable(r.AwayScoreET), nullable(r.HomeScorePen), nullable(r.AwayScorePen)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, model.ErrMatchNotFound
	}
	if err != nil {
		return model.Match{}, err
	}
	return m, nil
}

func (p *Postgres) CountFinishedMatches(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches WHERE status='FT'`).Scan(&n)
	return n, err
}

func finishedMatches(ctx context.Context, q queryer) ([]model.Match, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches m WHERE m.status='FT' ORDER BY m.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FinishedMatches fora de transação (usado pelo desempate do bolao-admin)
func (p *Postgres) FinishedMatches(ctx context.Context) ([]model.Match, error) {
	return finishedMatches(ctx, p.db)
}

// Grupos

func groupExists(ctx context.Context, q queryer, id int64) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM groups WHERE id=$1 AND is_active)`, id).Scan(&ok)
	return ok, err
}

func (p *Postgres) GroupExists(ctx context.Context, id int64) (bool, error) {
	return groupExists(ctx, p.db, id)
}

func (p *Postgres) ListActiveGroupIDs(ctx context.Context) ([]int64, error) {
	return p.int64s(ctx, `SELECT id FROM groups WHERE is_active ORDER BY id`)
}

// GroupIDsWithPredictionsFor lista grupos ativos com ao menos um palpite na partida
func (p *Postgres) GroupIDsWithPredictionsFor(ctx context.Context, matchID int64) ([]int64, error) {
	return p.int64s(ctx, `
		SELECT DISTINCT pr.group_id
		FROM predictions pr
		JOIN groups g ON g.id = pr.group_id AND g.is_active
		WHERE pr.match_id=$1
		ORDER BY pr.group_id`, matchID)
}

func (p *Postgres) int64s(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Palpites

func (p *Postgres) FindPrediction(ctx context.Context, userID, matchID int64, groupID *int64) (*model.Prediction, error) {
	pr, err := scanPrediction(p.db.QueryRowContext(ctx, `
		SELECT `+predictionColumns+`
		FROM predictions p
		WHERE p.user_id=$1 AND p.match_id=$2 AND COALESCE(p.group_id,0)=COALESCE($3::BIGINT,0)`,
		userID, matchID, nullable(groupID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func (p *Postgres) GetPrediction(ctx context.Context, id int64) (model.Prediction, error) {
	pr, err := scanPrediction(p.db.QueryRowContext(ctx, `SELECT `+predictionColumns+` FROM predictions p WHERE p.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Prediction{}, model.ErrPredictionNotFound
	}
	if err != nil {
		return model.Prediction{}, err
	}
	return pr, nil
}

// UpsertPrediction insere ou atualiza pelo índice único (user, match, coalesce(group,0)).
// Linha bloqueada não é tocada e vira ErrPredictionLocked.
func (p *Postgres) UpsertPrediction(ctx context.Context, userID int64, in model.PredictionInput) (model.Prediction, bool, error) {
	var inserted bool
	pr, err := scanPrediction(p.db.QueryRowContext(ctx, `
		INSERT INTO predictions AS p (user_id, match_id, group_id, home_pred, away_pred, advance_team)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''))
		ON CONFLICT (user_id, match_id, (COALESCE(group_id, 0))) DO UPDATE SET
			home_pred=EXCLUDED.home_pred,
			away_pred=EXCLUDED.away_pred,
			advance_team=COALESCE(EXCLUDED.advance_team, p.advance_team),
			updated_at=NOW()
		WHERE p.is_locked = FALSE
		RETURNING `+predictionColumns+`, (xmax = 0) AS inserted`,
		userID, in.MatchID, nullable(in.GroupID), in.HomePred, in.AwayPred, in.AdvanceTeam), &inserted)
	if errors.Is(err, sql.ErrNoRows) {
		// conflito com linha bloqueada: o WHERE do DO UPDATE não casou
		return model.Prediction{}, false, model.ErrPredictionLocked
	}
	if err != nil {
		return model.Prediction{}, false, err
	}
	return pr, inserted, nil
}

// UpdatePrediction edita placar e advance_team (vazio mantém o atual) de um palpite desbloqueado
func (p *Postgres) UpdatePrediction(ctx context.Context, id int64, in model.PredictionInput) (model.Prediction, error) {
	pr, err := scanPrediction(p.db.QueryRowContext(ctx, `
		UPDATE predictions p SET
			home_pred=$2, away_pred=$3,
			advance_team=COALESCE(NULLIF($4,''), p.advance_team),
			updated_at=NOW()
		WHERE p.id=$1 AND p.is_locked = FALSE
		RETURNING `+predictionColumns,
		id, in.HomePred, in.AwayPred, in.AdvanceTeam))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Prediction{}, model.ErrPredictionLocked
	}
	if err != nil {
		return model.Prediction{}, err
	}
	return pr, nil
}

func (p *Postgres) ListUserPredictions(ctx context.Context, userID int64, f model.PredictionFilter) ([]model.UserPrediction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+predictionColumns+`, `+matchColumns+`
		FROM predictions p
		JOIN matches m ON m.id = p.match_id
		WHERE p.user_id=$1
		  AND ($2::BIGINT IS NULL OR p.match_id=$2)
		  AND ($3::BIGINT IS NULL OR p.group_id=$3)
		ORDER BY m.kickoff_at_utc, p.id
		LIMIT $4 OFFSET $5`,
		userID, nullable(f.MatchID), nullable(f.GroupID), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.UserPrediction, 0)
	for rows.Next() {
		var up model.UserPrediction
		var stage, status string
		var hs, as, hsET, asET, hsPen, asPen sql.NullInt64
		m := &up.Match
		pr, err := scanPrediction(rows,
			&m.ID, &stage, &m.GroupName, &m.HomeTeam, &m.AwayTeam,
			&m.HomeTeamCode, &m.AwayTeamCode, &m.KickoffAt, &status,
			&hs, &as, &hsET, &asET, &hsPen, &asPen, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		up.Prediction = pr
		m.Stage, m.Status = model.MatchStage(stage), model.MatchStatus(status)
		m.KickoffAt = m.KickoffAt.UTC()
		m.HomeScore, m.AwayScore = intPtr(hs), intPtr(as)
		m.HomeScoreET, m.AwayScoreET = intPtr(hsET), intPtr(asET)
		m.HomeScorePen, m.AwayScorePen = intPtr(hsPen), intPtr(asPen)
		out = append(out, up)
	}
	return out, rows.Err()
}

// ListUpcomingWithoutPrediction: partidas agendadas com kickoff depois de openAfter
// em que o usuário não tem palpite em nenhum escopo
func (p *Postgres) ListUpcomingWithoutPrediction(ctx context.Context, userID int64, openAfter time.Time, limit int) ([]model.Match, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+matchColumns+`
		FROM matches m
		WHERE m.status='SCHEDULED' AND m.kickoff_at_utc > $2
		  AND NOT EXISTS (SELECT 1 FROM predictions p WHERE p.match_id=m.id AND p.user_id=$1)
		ORDER BY m.kickoff_at_utc
		LIMIT $3`, userID, openAfter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) ListMatchPredictions(ctx context.Context, matchID int64, groupID *int64) ([]model.MatchPrediction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT p.user_id, COALESCE(u.name,'Unknown'), p.home_pred, p.away_pred, p.points_awarded
		FROM predictions p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.match_id=$1 AND COALESCE(p.group_id,0)=COALESCE($2::BIGINT,0)
		ORDER BY p.points_awarded DESC, p.user_id`, matchID, nullable(groupID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.MatchPrediction, 0)
	for rows.Next() {
		var mp model.MatchPrediction
		if err := rows.Scan(&mp.UserID, &mp.UserName, &mp.HomePred, &mp.AwayPred, &mp.Points); err != nil {
			return nil, err
		}
		out = append(out, mp)
	}
	return out, rows.Err()
}

func predictionsInScope(ctx context.Context, q queryer, scope model.Scope) ([]model.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions p ORDER BY p.id`
	args := []any{}
	// global considera todos os palpites, inclusive os de grupo
	if gid, ok := scope.GroupID(); ok {
		query = `SELECT ` + predictionColumns + ` FROM predictions p WHERE p.group_id=$1 ORDER BY p.id`
		args = append(args, gid)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Prediction, 0)
	for rows.Next() {
		pr, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// PredictionsInScope fora de transação (usado pelo desempate do bolao-admin)
func (p *Postgres) PredictionsInScope(ctx context.Context, scope model.Scope) ([]model.Prediction, error) {
	return predictionsInScope(ctx, p.db, scope)
}

// Snapshots (standings_cache)

// GetSnapshot devolve nil quando o escopo nunca foi calculado
func (p *Postgres) GetSnapshot(ctx context.Context, scope model.Scope) (*model.Snapshot, error) {
	var raw []byte
	var computedAt time.Time
	err := p.db.QueryRowContext(ctx,
		`SELECT standings_data, computed_at FROM standings_cache WHERE scope=$1`, scope.String()).Scan(&raw, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows := make([]model.StandingRow, 0)
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode standings_data for %s: %w", scope, err)
	}
	return &model.Snapshot{Scope: scope, Standings: rows, ComputedAt: computedAt.UTC()}, nil
}

// Transação de recálculo

// WithinScopeTx roda fn numa transação com lock consultivo do escopo.
// O lock é liberado no commit/rollback; outra réplica recalculando o mesmo escopo espera.
func (p *Postgres) WithinScopeTx(ctx context.Context, scope model.Scope, fn func(standings.ScopeTx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, scope.String()); err != nil {
		return fmt.Errorf("advisory lock %s: %w", scope, err)
	}

	if err = fn(&scopeTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

type scopeTx struct{ tx *sql.Tx }

func (s *scopeTx) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	return groupExists(ctx, s.tx, groupID)
}

func (s *scopeTx) FinishedMatches(ctx context.Context) ([]model.Match, error) {
	return finishedMatches(ctx, s.tx)
}

func (s *scopeTx) PredictionsInScope(ctx context.Context, scope model.Scope) ([]model.Prediction, error) {
	return predictionsInScope(ctx, s.tx, scope)
}

func (s *scopeTx) UsersByID(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	return usersByID(ctx, s.tx, ids)
}

func usersByID(ctx context.Context, q queryer, ids []int64) (map[int64]model.User, error) {
	out := make(map[int64]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, name, COALESCE(avatar_url,'') FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.AvatarURL); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// UsersByID fora de transação (usado pelo desempate do bolao-admin)
func (p *Postgres) UsersByID(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	return usersByID(ctx, p.db, ids)
}

func (s *scopeTx) SavePredictionScores(ctx context.Context, scored []model.ScoredPrediction) error {
	if len(scored) == 0 {
		return nil
	}

	stmt, err := s.tx.PrepareContext(ctx, `
		UPDATE predictions
		SET points_awarded=$2, score_exact=$3, score_result=$4, score_balance=$5
		WHERE id=$1`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sp := range scored {
		if _, err := stmt.ExecContext(ctx, sp.PredictionID, sp.Points,
			sp.Explanation.Exact, sp.Explanation.Result, sp.Explanation.Balance); err != nil {
			return fmt.Errorf("prediction %d: %w", sp.PredictionID, err)
		}
	}
	return nil
}

// ReplaceSnapshot troca o snapshot inteiro do escopo (nunca faz patch incremental)
func (s *scopeTx) ReplaceSnapshot(ctx context.Context, snap model.Snapshot) error {
	rows := snap.Standings
	if rows == nil {
		rows = []model.StandingRow{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode standings: %w", err)
	}

	var groupID any
	if gid, ok := snap.Scope.GroupID(); ok {
		groupID = gid
	}

	_, err = s.tx.ExecContext(ctx, `
		INSERT INTO standings_cache (scope, group_id, standings_data, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope) DO UPDATE SET
			group_id=EXCLUDED.group_id,
			standings_data=EXCLUDED.standings_data,
			computed_at=EXCLUDED.computed_at`,
		snap.Scope.String(), groupID, raw, snap.ComputedAt)
	return err
}
