package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDeposit       Kind = "DEPOSIT"
	KindWithdrawal    Kind = "WITHDRAWAL"
	KindBetDebit      Kind = "BET_DEBIT"
	KindWinningCredit Kind = "WINNING_CREDIT"
	KindAdjustment    Kind = "ADJUSTMENT" // manual compensation credit
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Account carries a cached balance; the transaction log is the source of
// truth and Reconcile replays it against the cache.
type Account struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Transaction is an immutable log entry. Amounts are always positive; the
// kind implies the sign (deposits, winning credits and adjustments add,
// withdrawals and bet debits subtract).
type Transaction struct {
	ID        string
	AccountID string
	Kind      Kind
	Amount    decimal.Decimal
	Status    Status
	CreatedAt time.Time
	SettledAt *time.Time
}

// sign returns the balance direction of an applied transaction kind.
func sign(k Kind) int {
	switch k {
	case KindWithdrawal, KindBetDebit:
		return -1
	default:
		return 1
	}
}

// ReconcileResult compares the cached balance with a full replay of the
// account's applied transactions.
type ReconcileResult struct {
	AccountID  string
	Balance    decimal.Decimal
	Replayed   decimal.Decimal
	Consistent bool
}
