package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/shared/metrics"
	"github.com/matkabet/numbers-bet-platform/pkg/contracts/events"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadySettled    = errors.New("transaction already settled")
	ErrNotFound          = errors.New("not found")
)

// Emitter publishes committed ledger changes. Emission is best-effort: the
// store logs failures and never unwinds a committed mutation over them.
type Emitter interface {
	BalanceChanged(ctx context.Context, e events.BalanceChanged) error
	TransactionStatus(ctx context.Context, e events.TransactionStatus) error
}

// NopEmitter drops every event. Used by workers that own their own
// publishing, and by tests.
type NopEmitter struct{}

func (NopEmitter) BalanceChanged(context.Context, events.BalanceChanged) error       { return nil }
func (NopEmitter) TransactionStatus(context.Context, events.TransactionStatus) error { return nil }

// Store owns accounts and the transaction log. Every balance mutation locks
// the account row, so operations on one account serialize while different
// accounts proceed in parallel.
type Store struct {
	db   *sql.DB
	log  *zap.Logger
	emit Emitter
}

func NewStore(db *sql.DB, log *zap.Logger, emit Emitter) *Store {
	if emit == nil {
		emit = NopEmitter{}
	}
	return &Store{db: db, log: log, emit: emit}
}

// GetOrCreateAccount returns the account for a user, creating it on first use.
func (s *Store) GetOrCreateAccount(ctx context.Context, userID string) (Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	defer tx.Rollback()

	var a Account
	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, balance, created_at FROM accounts WHERE user_id=$1`,
		userID).Scan(&a.ID, &a.UserID, &a.Balance, &a.CreatedAt)
	if err == sql.ErrNoRows {
		a = Account{ID: uuid.NewString(), UserID: userID, Balance: decimal.Zero, CreatedAt: time.Now()}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO accounts(id, user_id, balance, version) VALUES($1,$2,0,1)`,
			a.ID, userID); err != nil {
			return Account{}, err
		}
	} else if err != nil {
		return Account{}, err
	}

	if err = tx.Commit(); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Balance returns the cached balance for an account.
func (s *Store) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id=$1`, accountID).Scan(&bal)
	if err == sql.ErrNoRows {
		return decimal.Zero, ErrNotFound
	}
	return bal, err
}

// Debit applies an immediate debit in its own transaction and emits the
// balance change after commit.
func (s *Store) Debit(ctx context.Context, accountID string, amount decimal.Decimal, kind Kind) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	txn, newBal, err := s.DebitTx(ctx, tx, accountID, amount, kind)
	if err != nil {
		return Transaction{}, err
	}
	if err = tx.Commit(); err != nil {
		return Transaction{}, err
	}

	s.notifyApplied(ctx, txn, newBal)
	return txn, nil
}

// Credit applies an immediate credit in its own transaction and emits the
// balance change after commit.
func (s *Store) Credit(ctx context.Context, accountID string, amount decimal.Decimal, kind Kind) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	txn, newBal, err := s.CreditTx(ctx, tx, accountID, amount, kind)
	if err != nil {
		return Transaction{}, err
	}
	if err = tx.Commit(); err != nil {
		return Transaction{}, err
	}

	s.notifyApplied(ctx, txn, newBal)
	return txn, nil
}

// DebitTx applies a debit inside the caller's transaction: row lock, funds
// check, balance update and APPROVED log insert as one unit. Callers that
// compose (bet placement) commit themselves and then call NotifyApplied.
func (s *Store) DebitTx(ctx context.Context, tx *sql.Tx, accountID string, amount decimal.Decimal, kind Kind) (Transaction, decimal.Decimal, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return Transaction{}, decimal.Zero, ErrInvalidAmount
	}

	var bal decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id=$1 FOR UPDATE`, accountID).Scan(&bal)
	if err == sql.ErrNoRows {
		return Transaction{}, decimal.Zero, ErrNotFound
	}
	if err != nil {
		return Transaction{}, decimal.Zero, err
	}

	if bal.Cmp(amount) < 0 {
		return Transaction{}, decimal.Zero, ErrInsufficientFunds
	}

	newBal := bal.Sub(amount)
	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance=$1, version=version+1, updated_at=NOW() WHERE id=$2`,
		newBal, accountID); err != nil {
		return Transaction{}, decimal.Zero, err
	}

	txn, err := insertApplied(ctx, tx, accountID, kind, amount)
	if err != nil {
		return Transaction{}, decimal.Zero, err
	}
	return txn, newBal, nil
}

// CreditTx applies a credit inside the caller's transaction.
func (s *Store) CreditTx(ctx context.Context, tx *sql.Tx, accountID string, amount decimal.Decimal, kind Kind) (Transaction, decimal.Decimal, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return Transaction{}, decimal.Zero, ErrInvalidAmount
	}

	var bal decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id=$1 FOR UPDATE`, accountID).Scan(&bal)
	if err == sql.ErrNoRows {
		return Transaction{}, decimal.Zero, ErrNotFound
	}
	if err != nil {
		return Transaction{}, decimal.Zero, err
	}

	newBal := bal.Add(amount)
	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance=$1, version=version+1, updated_at=NOW() WHERE id=$2`,
		newBal, accountID); err != nil {
		return Transaction{}, decimal.Zero, err
	}

	txn, err := insertApplied(ctx, tx, accountID, kind, amount)
	if err != nil {
		return Transaction{}, decimal.Zero, err
	}
	return txn, newBal, nil
}

// CreatePending records a deposit or withdrawal request. No balance effect
// until Settle approves it.
func (s *Store) CreatePending(ctx context.Context, accountID string, kind Kind, amount decimal.Decimal) (Transaction, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if kind != KindDeposit && kind != KindWithdrawal {
		return Transaction{}, fmt.Errorf("kind %s cannot be requested: %w", kind, ErrInvalidAmount)
	}

	txn := Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions(id, account_id, kind, amount, status) VALUES($1,$2,$3,$4,'PENDING')`,
		txn.ID, accountID, string(kind), amount)
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// Settle moves a pending deposit/withdrawal to APPROVED or REJECTED. The
// balance changes exactly at approval time; rejection never touches it.
// A second settle of the same transaction fails ErrAlreadySettled, which is
// what absorbs duplicate approval clicks and retried requests.
func (s *Store) Settle(ctx context.Context, txID string, approve bool) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback()

	var txn Transaction
	var kind, status string
	err = tx.QueryRowContext(ctx,
		`SELECT id, account_id, kind, amount, status, created_at
		 FROM transactions WHERE id=$1 FOR UPDATE`,
		txID).Scan(&txn.ID, &txn.AccountID, &kind, &txn.Amount, &status, &txn.CreatedAt)
	if err == sql.ErrNoRows {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	txn.Kind, txn.Status = Kind(kind), Status(status)

	if txn.Status != StatusPending {
		return Transaction{}, ErrAlreadySettled
	}

	var newBal decimal.Decimal
	if approve {
		// Account row lock: balance moves now, not at request time.
		var bal decimal.Decimal
		if err = tx.QueryRowContext(ctx,
			`SELECT balance FROM accounts WHERE id=$1 FOR UPDATE`, txn.AccountID).Scan(&bal); err != nil {
			return Transaction{}, err
		}

		switch txn.Kind {
		case KindDeposit:
			newBal = bal.Add(txn.Amount)
		case KindWithdrawal:
			if bal.Cmp(txn.Amount) < 0 {
				return Transaction{}, ErrInsufficientFunds
			}
			newBal = bal.Sub(txn.Amount)
		default:
			return Transaction{}, fmt.Errorf("kind %s is not settleable: %w", txn.Kind, ErrNotFound)
		}

		if _, err = tx.ExecContext(ctx,
			`UPDATE accounts SET balance=$1, version=version+1, updated_at=NOW() WHERE id=$2`,
			newBal, txn.AccountID); err != nil {
			return Transaction{}, err
		}
		txn.Status = StatusApproved
	} else {
		txn.Status = StatusRejected
	}

	now := time.Now()
	if _, err = tx.ExecContext(ctx,
		`UPDATE transactions SET status=$1, settled_at=NOW() WHERE id=$2`,
		string(txn.Status), txn.ID); err != nil {
		return Transaction{}, err
	}
	txn.SettledAt = &now

	if err = tx.Commit(); err != nil {
		return Transaction{}, err
	}

	if emitErr := s.emit.TransactionStatus(ctx, events.TransactionStatus{
		TxID:      txn.ID,
		AccountID: txn.AccountID,
		Kind:      string(txn.Kind),
		Status:    string(txn.Status),
		Amount:    txn.Amount.String(),
		Ts:        now,
	}); emitErr != nil {
		s.log.Warn("emit transaction status", zap.String("txId", txn.ID), zap.Error(emitErr))
	}
	if txn.Status == StatusApproved {
		s.notifyApplied(ctx, txn, newBal)
	}
	return txn, nil
}

// Entries returns the transaction log for an account, newest first.
func (s *Store) Entries(ctx context.Context, accountID string) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, kind, amount, status, created_at, settled_at
		 FROM transactions WHERE account_id=$1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var kind, status string
		var settled sql.NullTime
		if err := rows.Scan(&t.ID, &t.AccountID, &kind, &t.Amount, &status, &t.CreatedAt, &settled); err != nil {
			return nil, err
		}
		t.Kind, t.Status = Kind(kind), Status(status)
		if settled.Valid {
			ts := settled.Time
			t.SettledAt = &ts
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Reconcile replays every applied transaction of an account and compares the
// sum to the cached balance. credits minus debits must equal the balance.
func (s *Store) Reconcile(ctx context.Context, accountID string) (ReconcileResult, error) {
	bal, err := s.Balance(ctx, accountID)
	if err != nil {
		return ReconcileResult{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, amount FROM transactions WHERE account_id=$1 AND status='APPROVED'`, accountID)
	if err != nil {
		return ReconcileResult{}, err
	}
	defer rows.Close()

	replayed := decimal.Zero
	for rows.Next() {
		var kind string
		var amount decimal.Decimal
		if err := rows.Scan(&kind, &amount); err != nil {
			return ReconcileResult{}, err
		}
		if sign(Kind(kind)) < 0 {
			replayed = replayed.Sub(amount)
		} else {
			replayed = replayed.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return ReconcileResult{}, err
	}

	return ReconcileResult{
		AccountID:  accountID,
		Balance:    bal,
		Replayed:   replayed,
		Consistent: bal.Equal(replayed),
	}, nil
}

// NotifyApplied publishes the balance change for an applied transaction that
// was committed by a composing caller (bet debit, winning credit).
func (s *Store) NotifyApplied(ctx context.Context, txn Transaction, newBalance decimal.Decimal) {
	s.notifyApplied(ctx, txn, newBalance)
}

func (s *Store) notifyApplied(ctx context.Context, txn Transaction, newBalance decimal.Decimal) {
	metrics.LedgerMutations.WithLabelValues(string(txn.Kind)).Inc()
	if err := s.emit.BalanceChanged(ctx, events.BalanceChanged{
		AccountID:  txn.AccountID,
		Kind:       string(txn.Kind),
		Amount:     txn.Amount.String(),
		NewBalance: newBalance.String(),
		TxID:       txn.ID,
		TsUnixMs:   time.Now().UnixMilli(),
	}); err != nil {
		s.log.Warn("emit balance changed", zap.String("accountId", txn.AccountID), zap.Error(err))
	}
}

func insertApplied(ctx context.Context, tx *sql.Tx, accountID string, kind Kind, amount decimal.Decimal) (Transaction, error) {
	txn := Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Status:    StatusApproved,
		CreatedAt: time.Now(),
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions(id, account_id, kind, amount, status, settled_at) VALUES($1,$2,$3,$4,'APPROVED',NOW())`,
		txn.ID, accountID, string(kind), amount)
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}
