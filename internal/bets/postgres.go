package bets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
)

var ErrNotFound = errors.New("not found")

// Postgres persists bets. Money moves through the ledger store inside the
// same database transaction as the bet row, so a stake debit without its bet
// (or the reverse) cannot be observed.
type Postgres struct {
	db     *sql.DB
	ledger *ledger.Store
}

func NewPostgres(db *sql.DB, ls *ledger.Store) *Postgres {
	return &Postgres{db: db, ledger: ls}
}

// Place inserts the bet and debits the stake as one atomic unit. On
// insufficient funds nothing is written.
func (p *Postgres) Place(ctx context.Context, b *Bet) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	txn, newBal, err := p.ledger.DebitTx(ctx, tx, b.AccountID, b.Amount, ledger.KindBetDebit)
	if err != nil {
		return err
	}

	b.ID = uuid.NewString()
	b.Status = StatusPending
	b.CreatedAt = time.Now()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, account_id, target_kind, target_id, game_type, selection, amount, potential_winning, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'PENDING')`,
		b.ID, b.AccountID, string(b.TargetKind), b.TargetID, string(b.Game), b.Selection, b.Amount, b.PotentialWinning,
	); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	p.ledger.NotifyApplied(ctx, txn, newBal)
	return nil
}

// Get returns one bet by id.
func (p *Postgres) Get(ctx context.Context, id string) (Bet, error) {
	var b Bet
	var kind, game, status string
	var settled sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, account_id, target_kind, target_id, game_type, selection, amount, potential_winning, status, created_at, settled_at
		FROM bets WHERE id=$1`, id).
		Scan(&b.ID, &b.AccountID, &kind, &b.TargetID, &game, &b.Selection, &b.Amount, &b.PotentialWinning, &status, &b.CreatedAt, &settled)
	if err == sql.ErrNoRows {
		return Bet{}, ErrNotFound
	}
	if err != nil {
		return Bet{}, err
	}
	b.TargetKind = settlement.TargetKind(kind)
	b.Game = rules.GameType(game)
	b.Status = Status(status)
	if settled.Valid {
		ts := settled.Time
		b.SettledAt = &ts
	}
	return b, nil
}

// ByAccount lists an account's bets, newest first.
func (p *Postgres) ByAccount(ctx context.Context, accountID string) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, account_id, target_kind, target_id, game_type, selection, amount, potential_winning, status, created_at, settled_at
		FROM bets WHERE account_id=$1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBets(rows)
}

// PendingForTarget loads the settlement view of every pending bet on a
// market or option game. Implements settlement.BetStore.
func (p *Postgres) PendingForTarget(ctx context.Context, targetID string) ([]settlement.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, account_id, game_type, selection, amount, potential_winning
		FROM bets WHERE target_id=$1 AND status='PENDING'`, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settlement.Bet
	for rows.Next() {
		var b settlement.Bet
		var game string
		if err := rows.Scan(&b.ID, &b.AccountID, &game, &b.Selection, &b.Amount, &b.PotentialWinning); err != nil {
			return nil, err
		}
		b.Game = rules.GameType(game)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Settle applies a single bet outcome: conditional status transition plus
// the winning credit in one transaction. The WHERE status='PENDING' guard
// makes re-runs skip bets an earlier pass already settled, so the credit is
// applied at most once per bet. Implements settlement.BetStore.
func (p *Postgres) Settle(ctx context.Context, bet settlement.Bet, won bool) (bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	status := StatusLost
	if won {
		status = StatusWon
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE bets SET status=$1, settled_at=NOW() WHERE id=$2 AND status='PENDING'`,
		string(status), bet.ID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil // already settled, nothing to apply
	}

	var txn ledger.Transaction
	var newBal decimal.Decimal
	if won {
		txn, newBal, err = p.ledger.CreditTx(ctx, tx, bet.AccountID, bet.PotentialWinning, ledger.KindWinningCredit)
		if err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}

	if won {
		p.ledger.NotifyApplied(ctx, txn, newBal)
	}
	return true, nil
}

func scanBets(rows *sql.Rows) ([]Bet, error) {
	var out []Bet
	for rows.Next() {
		var b Bet
		var kind, game, status string
		var settled sql.NullTime
		if err := rows.Scan(&b.ID, &b.AccountID, &kind, &b.TargetID, &game, &b.Selection, &b.Amount, &b.PotentialWinning, &status, &b.CreatedAt, &settled); err != nil {
			return nil, err
		}
		b.TargetKind = settlement.TargetKind(kind)
		b.Game = rules.GameType(game)
		b.Status = Status(status)
		if settled.Valid {
			ts := settled.Time
			b.SettledAt = &ts
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
