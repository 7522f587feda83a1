package bets

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db, ledger.NewStore(db, zap.NewNop(), nil)), mock
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestPlaceDebitsAndInsertsAtomically(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance FROM accounts WHERE id=\\$1 FOR UPDATE").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("100.00"))
	mock.ExpectExec("UPDATE accounts SET balance=\\$1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &Bet{
		AccountID:        "acct-1",
		TargetKind:       settlement.TargetMarket,
		TargetID:         "m1",
		Game:             rules.Jodi,
		Selection:        "45",
		Amount:           dec("10"),
		PotentialWinning: dec("950"),
	}
	if err := store.Place(context.Background(), b); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if b.ID == "" || b.Status != StatusPending {
		t.Errorf("bet not initialized: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPlaceInsufficientFundsWritesNothing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance FROM accounts WHERE id=\\$1 FOR UPDATE").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("5.00"))
	mock.ExpectRollback()

	b := &Bet{AccountID: "acct-1", TargetKind: settlement.TargetMarket, TargetID: "m1", Game: rules.Jodi, Selection: "45", Amount: dec("10")}
	if err := store.Place(context.Background(), b); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSettleWonCreditsInSameTx(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bets SET status=\\$1").
		WithArgs("WON", "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT balance FROM accounts WHERE id=\\$1 FOR UPDATE").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("90.00"))
	mock.ExpectExec("UPDATE accounts SET balance=\\$1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bet := settlement.Bet{ID: "b1", AccountID: "acct-1", PotentialWinning: dec("950")}
	applied, err := store.Settle(context.Background(), bet, true)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !applied {
		t.Error("applied = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSettleLostNeverTouchesBalance(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bets SET status=\\$1").
		WithArgs("LOST", "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := store.Settle(context.Background(), settlement.Bet{ID: "b1", AccountID: "acct-1"}, false)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !applied {
		t.Error("applied = false, want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSettleSkipsAlreadySettledBet(t *testing.T) {
	store, mock := newMockStore(t)

	// A resume pass hits a bet an earlier run settled: the conditional update
	// matches nothing and no credit happens.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bets SET status=\\$1").
		WithArgs("WON", "b1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	applied, err := store.Settle(context.Background(), settlement.Bet{ID: "b1", AccountID: "acct-1", PotentialWinning: dec("950")}, true)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if applied {
		t.Error("applied = true, want false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM bets WHERE id=\\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
