package settlement

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/matkabet/numbers-bet-platform/internal/rules"
)

type TargetKind string

const (
	TargetMarket TargetKind = "MARKET"
	TargetOption TargetKind = "OPTION"
)

// Target identifies what a result is declared on.
type Target struct {
	Kind TargetKind
	ID   string
}

var (
	ErrAlreadyDeclared = errors.New("result already declared")
	ErrNotClosed       = errors.New("target not closed")
	ErrNotDeclared     = errors.New("result not declared")
)

// Bet is the slice of a stored bet the engine needs to settle it.
// Selection is the canonical encoding written by the registry.
type Bet struct {
	ID               string
	AccountID        string
	Game             rules.GameType
	Selection        string
	Amount           decimal.Decimal
	PotentialWinning decimal.Decimal
}

// ResultStore performs the declare transition and reads back declared
// results. Declare must be atomic and conditional: exactly one concurrent
// caller succeeds, the rest fail ErrAlreadyDeclared.
type ResultStore interface {
	Declare(ctx context.Context, target Target, resultValue string) error
	DeclaredResult(ctx context.Context, target Target) (string, error)
}

// BetStore loads pending bets and applies single-bet outcomes. Settle must
// update the bet status and credit the payout as one atomic unit, and must
// report applied=false when the bet already left PENDING.
type BetStore interface {
	PendingForTarget(ctx context.Context, targetID string) ([]Bet, error)
	Settle(ctx context.Context, bet Bet, won bool) (applied bool, err error)
}
