package markets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/matkabet/numbers-bet-platform/internal/settlement"
)

func newMockRepo(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestDeclareClosedMarket(t *testing.T) {
	repo, mock := newMockRepo(t)
	target := settlement.Target{Kind: settlement.TargetMarket, ID: "m1"}

	mock.ExpectQuery("SELECT status, closing_time FROM markets").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "closing_time"}).
			AddRow("CLOSED", time.Now().Add(-time.Hour)))
	mock.ExpectExec("UPDATE markets SET result_status='DECLARED'").
		WithArgs("45", "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Declare(context.Background(), target, "45"); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeclareTwiceIsRejected(t *testing.T) {
	repo, mock := newMockRepo(t)
	target := settlement.Target{Kind: settlement.TargetMarket, ID: "m1"}

	// Second caller still sees the market closed, but the conditional update
	// on result_status matches no row anymore.
	mock.ExpectQuery("SELECT status, closing_time FROM markets").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "closing_time"}).
			AddRow("CLOSED", time.Now().Add(-time.Hour)))
	mock.ExpectExec("UPDATE markets SET result_status='DECLARED'").
		WithArgs("99", "m1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Declare(context.Background(), target, "99")
	if !errors.Is(err, settlement.ErrAlreadyDeclared) {
		t.Fatalf("err = %v, want ErrAlreadyDeclared", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeclareOpenMarketRejected(t *testing.T) {
	repo, mock := newMockRepo(t)
	target := settlement.Target{Kind: settlement.TargetMarket, ID: "m1"}

	mock.ExpectQuery("SELECT status, closing_time FROM markets").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "closing_time"}).
			AddRow("OPEN", time.Now().Add(time.Hour)))

	err := repo.Declare(context.Background(), target, "45")
	if !errors.Is(err, settlement.ErrNotClosed) {
		t.Fatalf("err = %v, want ErrNotClosed", err)
	}
}

func TestDeclarePastClosingAllowedWhileStillOpen(t *testing.T) {
	repo, mock := newMockRepo(t)
	target := settlement.Target{Kind: settlement.TargetMarket, ID: "m1"}

	// Scheduler lag: closing time passed but the cron has not flipped the
	// status yet. Declaring is allowed.
	mock.ExpectQuery("SELECT status, closing_time FROM markets").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "closing_time"}).
			AddRow("OPEN", time.Now().Add(-time.Minute)))
	mock.ExpectExec("UPDATE markets SET result_status='DECLARED'").
		WithArgs("45", "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Declare(context.Background(), target, "45"); err != nil {
		t.Fatalf("Declare: %v", err)
	}
}

func TestDeclareOptionGame(t *testing.T) {
	repo, mock := newMockRepo(t)
	target := settlement.Target{Kind: settlement.TargetOption, ID: "g1"}

	mock.ExpectQuery("SELECT status, closing_time FROM option_games").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "closing_time"}).
			AddRow("CLOSED", time.Now().Add(-time.Hour)))
	mock.ExpectExec("UPDATE option_games SET result_status='DECLARED'").
		WithArgs("A", "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Declare(context.Background(), target, "A"); err != nil {
		t.Fatalf("Declare: %v", err)
	}
}

func TestDeclaredResultBeforeDeclare(t *testing.T) {
	repo, mock := newMockRepo(t)
	target := settlement.Target{Kind: settlement.TargetMarket, ID: "m1"}

	mock.ExpectQuery("SELECT result_status, result_value FROM markets").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"result_status", "result_value"}).
			AddRow("PENDING", nil))

	_, err := repo.DeclaredResult(context.Background(), target)
	if !errors.Is(err, settlement.ErrNotDeclared) {
		t.Fatalf("err = %v, want ErrNotDeclared", err)
	}
}

func TestDeclaredResultReturnsValue(t *testing.T) {
	repo, mock := newMockRepo(t)
	target := settlement.Target{Kind: settlement.TargetOption, ID: "g1"}

	mock.ExpectQuery("SELECT result_status, winning_team FROM option_games").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"result_status", "winning_team"}).
			AddRow("DECLARED", "B"))

	got, err := repo.DeclaredResult(context.Background(), target)
	if err != nil {
		t.Fatalf("DeclaredResult: %v", err)
	}
	if got != "B" {
		t.Errorf("result = %q, want B", got)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectExec("UPDATE markets SET status='OPEN'").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE option_games SET status='OPEN'").
		WillReturnResult(sqlmock.NewResult(0, 1))

	opened, err := repo.OpenDue(context.Background(), now)
	if err != nil {
		t.Fatalf("OpenDue: %v", err)
	}
	if opened != 3 {
		t.Errorf("opened = %d, want 3", opened)
	}

	mock.ExpectExec("UPDATE markets SET status='CLOSED'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE option_games SET status='CLOSED'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	closed, err := repo.CloseDue(context.Background(), now)
	if err != nil {
		t.Fatalf("CloseDue: %v", err)
	}
	if closed != 1 {
		t.Errorf("closed = %d, want 1", closed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCloseUnknownTarget(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE markets SET status='CLOSED'").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Close(context.Background(), settlement.Target{Kind: settlement.TargetMarket, ID: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
