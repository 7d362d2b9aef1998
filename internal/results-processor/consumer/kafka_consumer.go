package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/ranking-service/model"
	"github.com/radieske/bolao-platform/internal/ranking-service/standings"
	"github.com/radieske/bolao-platform/internal/shared/kafka"
	"github.com/radieske/bolao-platform/pkg/contracts/events"
)

const (
	defaultReadRetryDelay = 500 * time.Millisecond
	defaultApplyRetries   = 3
	defaultApplyBackoff   = 300 * time.Millisecond
	dlqWriteTimeout       = 5 * time.Second
)

// ResultApplier grava o resultado e dispara o recálculo dos escopos afetados
type ResultApplier interface {
	Apply(ctx context.Context, r model.MatchResult) (model.Match, standings.Summary, error)
}

// Processor consome eventos de resultado do Kafka e os aplica ao bolão.
// O offset já está confirmado quando a mensagem chega aqui: falhas temporárias são
// repetidas e o que não puder ser aplicado vai para a DLQ.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log     *zap.Logger
	Reader  kafka.MessageReader
	Results ResultApplier
	DLQ     kafka.MessageWriter // opcional; sem DLQ a mensagem é descartada com log de erro

	OnConsumed func()                  // métricas (counter++)
	OnApplied  func(standings.Summary) // resumo do recálculo disparado
	OnError    func(string)            // métricas por fase: read|decode|apply|retry|recalc|dlq

	RetryDelay   time.Duration // espera após falha de leitura (default 500ms)
	ApplyRetries int           // novas tentativas após falha temporária (default 3)
	ApplyBackoff time.Duration // espera base entre tentativas, cresce linear (default 300ms)
}

// Run inicia o loop principal de consumo; só retorna quando o contexto é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			sleep(ctx, p.RetryDelay, defaultReadRetryDelay)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma única mensagem
func (p *Processor) Handle(ctx context.Context, msg kafka.Message) {
	var ev events.MatchResult
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, msg, "decode", err, 1)
		return
	}

	match, sum, attempts, err := p.apply(ctx, toMatchResult(ev))
	if err != nil {
		lvl := p.Log.Error
		if permanent(err) {
			lvl = p.Log.Warn
		}
		lvl("match result rejected",
			zap.Int64("match_id", ev.MatchID),
			zap.String("source", ev.Source),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		p.fail("apply")
		p.deadLetter(ctx, msg, "apply", err, attempts)
		return
	}

	if len(sum.Failed) > 0 {
		p.fail("recalc")
	}
	p.Log.Info("match result processed",
		zap.Int64("match_id", match.ID),
		zap.String("status", string(match.Status)),
		zap.String("run_id", sum.RunID),
		zap.Strings("failed_scopes", sum.Failed),
	)
	if p.OnApplied != nil {
		p.OnApplied(sum)
	}
}

// apply repete falhas temporárias; resultado inválido ou partida inexistente não mudam com retry
func (p *Processor) apply(ctx context.Context, r model.MatchResult) (model.Match, standings.Summary, int, error) {
	retries := p.ApplyRetries
	if retries <= 0 {
		retries = defaultApplyRetries
	}

	for attempt := 1; ; attempt++ {
		m, sum, err := p.Results.Apply(ctx, r)
		if err == nil || permanent(err) || attempt > retries || ctx.Err() != nil {
			return m, sum, attempt, err
		}
		p.Log.Warn("apply match result failed, retrying",
			zap.Int64("match_id", r.MatchID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		p.fail("retry")
		sleep(ctx, time.Duration(attempt)*p.ApplyBackoff, time.Duration(attempt)*defaultApplyBackoff)
	}
}

func permanent(err error) bool {
	return errors.Is(err, model.ErrInvalidResult) || errors.Is(err, model.ErrMatchNotFound)
}

// deadLetter grava a mensagem original na DLQ, mesmo durante o shutdown
func (p *Processor) deadLetter(ctx context.Context, msg kafka.Message, stage string, cause error, attempts int) {
	if p.DLQ == nil {
		p.Log.Error("match result dropped: no dead-letter queue configured", zap.String("stage", stage))
		return
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dlqWriteTimeout)
	defer cancel()

	dl := events.DeadLetter{
		Topic:    msg.Topic,
		Key:      string(msg.Key),
		Payload:  string(msg.Value),
		Stage:    stage,
		Error:    cause.Error(),
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	if err := kafka.WriteJSON(dctx, p.DLQ, dlqKey(msg), dl); err != nil {
		p.Log.Error("dead-letter write failed; match result lost", zap.String("stage", stage), zap.Error(err))
		p.fail("dlq")
	}
}

func dlqKey(msg kafka.Message) string {
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	return strconv.FormatInt(msg.Offset, 10)
}

func toMatchResult(ev events.MatchResult) model.MatchResult {
	return model.MatchResult{
		MatchID:      ev.MatchID,
		Status:       model.MatchStatus(ev.Status),
		HomeScore:    ev.HomeScore,
		AwayScore:    ev.AwayScore,
		HomeScoreET:  ev.HomeScoreET,
		AwayScoreET:  ev.AwayScoreET,
		HomeScorePen: ev.HomeScorePen,
		AwayScorePen: ev.AwayScorePen,
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sleep(ctx context.Context, d, def time.Duration) {
	if d <= 0 {
		d = def
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
