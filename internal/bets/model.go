package bets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusWon     Status = "WON"
	StatusLost    Status = "LOST"
)

// Bet covers both variants: market bets carry a game type, option bets are
// always rules.Option. Selection is the canonical encoding produced by
// rules.Parse — never the raw user input.
type Bet struct {
	ID               string
	AccountID        string
	TargetKind       settlement.TargetKind
	TargetID         string
	Game             rules.GameType
	Selection        string
	Amount           decimal.Decimal
	PotentialWinning decimal.Decimal
	Status           Status
	CreatedAt        time.Time
	SettledAt        *time.Time
}
