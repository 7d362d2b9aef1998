package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
)

// StandingsCache espelha o standings_cache do Postgres no Redis.
// Sem TTL: o snapshot vale até o próximo recálculo sobrescrever.
//
// Cada escopo é um hash com "ts" (computed_at em microssegundos) e "data" (JSON).
// Escritas só passam se ts não for mais antigo que o gravado; um hash só com "ts"
// é uma lápide que força leitura no Postgres e barra reabastecimentos antigos.
type StandingsCache struct{ R *redis.Client }

func NewStandingsCache(r *redis.Client) *StandingsCache { return &StandingsCache{R: r} }

func keyStandings(scope model.Scope) string { return "standings:" + scope.String() }

const (
	fieldTS   = "ts"
	fieldData = "data"
)

// KEYS[1]=chave ARGV[1]=ts ARGV[2]=json
var setIfNotOlder = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'data', ARGV[2])
return 1
`)

// KEYS[1]=chave ARGV[1]=ts
var tombstoneIfNotOlder = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'ts', ARGV[1])
return 1
`)

// cachedSnapshot é o formato gravado em "data"
type cachedSnapshot struct {
	Scope      string              `json:"scope"`
	Standings  []model.StandingRow `json:"standings"`
	ComputedAt time.Time           `json:"computed_at"`
}

func stamp(t time.Time) string { return strconv.FormatInt(t.UnixMicro(), 10) }

// GetSnapshot devolve nil, nil em cache miss ou lápide
func (c *StandingsCache) GetSnapshot(ctx context.Context, scope model.Scope) (*model.Snapshot, error) {
	b, err := c.R.HGet(ctx, keyStandings(scope), fieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cs cachedSnapshot
	if err := json.Unmarshal(b, &cs); err != nil {
		return nil, fmt.Errorf("decode cached standings %s: %w", scope, err)
	}
	if cs.Standings == nil {
		cs.Standings = []model.StandingRow{}
	}
	return &model.Snapshot{Scope: scope, Standings: cs.Standings, ComputedAt: cs.ComputedAt.UTC()}, nil
}

// SetSnapshot grava o snapshot a menos que o Redis já tenha um mais novo (ou lápide mais nova).
// Descartar uma escrita antiga não é erro.
func (c *StandingsCache) SetSnapshot(ctx context.Context, snap model.Snapshot) error {
	b, err := json.Marshal(cachedSnapshot{
		Scope:      snap.Scope.String(),
		Standings:  snap.Standings,
		ComputedAt: snap.ComputedAt,
	})
	if err != nil {
		return fmt.Errorf("encode standings %s: %w", snap.Scope, err)
	}
	return setIfNotOlder.Run(ctx, c.R, []string{keyStandings(snap.Scope)}, stamp(snap.ComputedAt), b).Err()
}

// Invalidate troca o espelho do escopo por uma lápide datada de asOf.
// Leituras seguintes vão ao Postgres e só snapshots com computed_at >= asOf reabastecem o Redis.
func (c *StandingsCache) Invalidate(ctx context.Context, scope model.Scope, asOf time.Time) error {
	return tombstoneIfNotOlder.Run(ctx, c.R, []string{keyStandings(scope)}, stamp(asOf)).Err()
}
