package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/shared/metrics"
	"github.com/matkabet/numbers-bet-platform/pkg/contracts/events"
)

// Emitter publishes per-bet outcomes. Best-effort: a publish failure never
// affects the committed settlement.
type Emitter interface {
	BetSettled(ctx context.Context, e events.BetSettled) error
}

type nopEmitter struct{}

func (nopEmitter) BetSettled(context.Context, events.BetSettled) error { return nil }

// Report summarizes one settlement pass.
type Report struct {
	Target      Target
	ResultValue string
	Won         int
	Lost        int
	// Invalid counts bets whose stored selection failed to parse or
	// evaluate. They stay PENDING for a manual adjustment, never silently
	// won or lost.
	Invalid       int
	TotalPaid     decimal.Decimal
	PaidByAccount map[string]decimal.Decimal
}

// Engine orchestrates result declaration and bet settlement.
type Engine struct {
	log     *zap.Logger
	results ResultStore
	bets    BetStore
	emit    Emitter
}

func NewEngine(log *zap.Logger, results ResultStore, bets BetStore, emit Emitter) *Engine {
	if emit == nil {
		emit = nopEmitter{}
	}
	return &Engine{log: log, results: results, bets: bets, emit: emit}
}

// DeclareResult sets the result exactly once and settles every pending bet
// on the target. The declare transition serializes concurrent callers: the
// losers fail ErrAlreadyDeclared and must not retry with a different value.
func (e *Engine) DeclareResult(ctx context.Context, target Target, resultValue string) (Report, error) {
	if err := validateResult(target.Kind, resultValue); err != nil {
		return Report{}, err
	}

	if err := e.results.Declare(ctx, target, resultValue); err != nil {
		return Report{}, err
	}

	metrics.SettlementRuns.WithLabelValues("declare").Inc()
	return e.settle(ctx, target, resultValue)
}

// Resume re-runs the settle loop for an already-declared target. Bets that
// already left PENDING are skipped, so a crash between declare and the last
// bet is recovered by calling Resume; credits are applied at most once.
func (e *Engine) Resume(ctx context.Context, target Target) (Report, error) {
	resultValue, err := e.results.DeclaredResult(ctx, target)
	if err != nil {
		return Report{}, err
	}

	metrics.SettlementRuns.WithLabelValues("resume").Inc()
	return e.settle(ctx, target, resultValue)
}

func (e *Engine) settle(ctx context.Context, target Target, resultValue string) (Report, error) {
	report := Report{
		Target:        target,
		ResultValue:   resultValue,
		TotalPaid:     decimal.Zero,
		PaidByAccount: make(map[string]decimal.Decimal),
	}

	pending, err := e.bets.PendingForTarget(ctx, target.ID)
	if err != nil {
		return report, fmt.Errorf("load pending bets: %w", err)
	}

	for _, bet := range pending {
		won, evalErr := evaluate(bet, resultValue)
		if evalErr != nil {
			report.Invalid++
			metrics.BetsSettled.WithLabelValues("invalid").Inc()
			e.log.Error("bet not evaluable, left pending",
				zap.String("betId", bet.ID),
				zap.String("selection", bet.Selection),
				zap.Error(evalErr))
			continue
		}

		applied, err := e.bets.Settle(ctx, bet, won)
		if err != nil {
			// Surface the partial report; the worker resumes the rest.
			return report, fmt.Errorf("settle bet %s: %w", bet.ID, err)
		}
		if !applied {
			continue // settled by an earlier run
		}

		ev := events.BetSettled{
			BetID:     bet.ID,
			AccountID: bet.AccountID,
			TargetID:  target.ID,
			Ts:        time.Now(),
		}
		if won {
			report.Won++
			report.TotalPaid = report.TotalPaid.Add(bet.PotentialWinning)
			paid := report.PaidByAccount[bet.AccountID]
			report.PaidByAccount[bet.AccountID] = paid.Add(bet.PotentialWinning)
			ev.Status = "WON"
			ev.Payout = bet.PotentialWinning.String()
			metrics.BetsSettled.WithLabelValues("won").Inc()
		} else {
			report.Lost++
			ev.Status = "LOST"
			metrics.BetsSettled.WithLabelValues("lost").Inc()
		}

		if err := e.emit.BetSettled(ctx, ev); err != nil {
			e.log.Warn("emit bet settled", zap.String("betId", bet.ID), zap.Error(err))
		}
	}

	e.log.Info("settlement pass done",
		zap.String("target", target.ID),
		zap.Int("won", report.Won),
		zap.Int("lost", report.Lost),
		zap.Int("invalid", report.Invalid),
		zap.String("totalPaid", report.TotalPaid.String()))

	return report, nil
}

func evaluate(bet Bet, resultValue string) (bool, error) {
	sel, err := rules.Parse(bet.Game, bet.Selection)
	if err != nil {
		return false, err
	}
	return rules.Evaluate(sel, resultValue)
}

func validateResult(kind TargetKind, resultValue string) error {
	if kind == TargetOption {
		return rules.ValidateOptionResult(resultValue)
	}
	return rules.ValidateMarketResult(resultValue)
}
