package registry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matkabet/numbers-bet-platform/internal/bets"
	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/markets"
	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
	"github.com/matkabet/numbers-bet-platform/internal/shared/metrics"
)

var (
	ErrMarketClosed   = errors.New("market closed")
	ErrGameNotOffered = errors.New("game type not offered on this market")
)

// TargetStore reads the market or option game a bet points at.
type TargetStore interface {
	GetMarket(ctx context.Context, id string) (markets.Market, error)
	GetOptionGame(ctx context.Context, id string) (markets.OptionGame, error)
}

// OddsSource resolves current multipliers for a market game type.
type OddsSource interface {
	MarketOdds(ctx context.Context, marketID string, game rules.GameType) (odds, bothOdds decimal.Decimal, err error)
}

// BetWriter persists a validated bet atomically with its stake debit.
type BetWriter interface {
	Place(ctx context.Context, b *bets.Bet) error
}

// PlaceRequest is the validated-at-the-boundary input for one bet.
type PlaceRequest struct {
	AccountID  string
	TargetKind settlement.TargetKind
	TargetID   string
	GameType   string // market bets only
	Selection  string // raw, per game-type grammar
	Amount     decimal.Decimal
}

// Registry validates and records bets. The selection is parsed here, once;
// settlement never sees raw input. The potential winning is fixed here from
// the configured odds — the single payout formula in the system.
type Registry struct {
	targets TargetStore
	odds    OddsSource
	writer  BetWriter
}

func New(targets TargetStore, odds OddsSource, writer BetWriter) *Registry {
	return &Registry{targets: targets, odds: odds, writer: writer}
}

func (r *Registry) PlaceBet(ctx context.Context, req PlaceRequest) (bets.Bet, error) {
	if req.Amount.Cmp(decimal.Zero) <= 0 {
		return bets.Bet{}, ledger.ErrInvalidAmount
	}

	var sel rules.Selection
	var oddsValue decimal.Decimal

	switch req.TargetKind {
	case settlement.TargetMarket:
		m, err := r.targets.GetMarket(ctx, req.TargetID)
		if err != nil {
			return bets.Bet{}, err
		}
		if m.Status != markets.StatusOpen || !time.Now().Before(m.ClosingTime) {
			return bets.Bet{}, ErrMarketClosed
		}

		game, err := rules.ParseGameType(req.GameType)
		if err != nil {
			return bets.Bet{}, err
		}
		if sel, err = rules.Parse(game, req.Selection); err != nil {
			return bets.Bet{}, err
		}

		base, both, err := r.odds.MarketOdds(ctx, m.ID, game)
		if err != nil {
			if errors.Is(err, markets.ErrNotFound) {
				return bets.Bet{}, ErrGameNotOffered
			}
			return bets.Bet{}, err
		}
		oddsValue = base
		if sel.UsesBothOdds() {
			if both.IsZero() {
				return bets.Bet{}, ErrGameNotOffered
			}
			oddsValue = both
		}

	case settlement.TargetOption:
		g, err := r.targets.GetOptionGame(ctx, req.TargetID)
		if err != nil {
			return bets.Bet{}, err
		}
		if g.Status != markets.StatusOpen || !time.Now().Before(g.ClosingTime) {
			return bets.Bet{}, ErrMarketClosed
		}
		if sel, err = rules.Parse(rules.Option, req.Selection); err != nil {
			return bets.Bet{}, err
		}
		oddsValue = g.Odds

	default:
		return bets.Bet{}, bets.ErrNotFound
	}

	b := bets.Bet{
		AccountID:        req.AccountID,
		TargetKind:       req.TargetKind,
		TargetID:         req.TargetID,
		Game:             sel.Game,
		Selection:        sel.Encode(),
		Amount:           req.Amount,
		PotentialWinning: req.Amount.Mul(oddsValue),
	}

	if err := r.writer.Place(ctx, &b); err != nil {
		return bets.Bet{}, err
	}

	metrics.BetsPlaced.Inc()
	return b, nil
}
