package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/rules"
)

type fakeResults struct {
	mu       sync.Mutex
	declared map[string]string
	closed   bool
}

func newFakeResults() *fakeResults {
	return &fakeResults{declared: make(map[string]string), closed: true}
}

func (f *fakeResults) Declare(_ context.Context, target Target, resultValue string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		return ErrNotClosed
	}
	if _, ok := f.declared[target.ID]; ok {
		return ErrAlreadyDeclared
	}
	f.declared[target.ID] = resultValue
	return nil
}

func (f *fakeResults) DeclaredResult(_ context.Context, target Target) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.declared[target.ID]
	if !ok {
		return "", ErrNotDeclared
	}
	return v, nil
}

type fakeBets struct {
	mu      sync.Mutex
	pending []Bet
	status  map[string]string          // betID -> WON | LOST
	credits map[string]decimal.Decimal // accountID -> total credited
	failOn  string                     // betID whose settle errors, simulating a crash
}

func newFakeBets(bets ...Bet) *fakeBets {
	return &fakeBets{
		pending: bets,
		status:  make(map[string]string),
		credits: make(map[string]decimal.Decimal),
	}
}

func (f *fakeBets) PendingForTarget(_ context.Context, targetID string) ([]Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Bet
	for _, b := range f.pending {
		if _, done := f.status[b.ID]; !done {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBets) Settle(_ context.Context, bet Bet, won bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bet.ID == f.failOn {
		return false, errors.New("connection reset")
	}
	if _, done := f.status[bet.ID]; done {
		return false, nil
	}
	if won {
		f.status[bet.ID] = "WON"
		f.credits[bet.AccountID] = f.credits[bet.AccountID].Add(bet.PotentialWinning)
	} else {
		f.status[bet.ID] = "LOST"
	}
	return true, nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func marketBet(id, account string, game rules.GameType, selection, amount, potential string) Bet {
	return Bet{
		ID:               id,
		AccountID:        account,
		Game:             game,
		Selection:        selection,
		Amount:           dec(amount),
		PotentialWinning: dec(potential),
	}
}

func TestDeclareResultSettlesAllPending(t *testing.T) {
	bets := newFakeBets(
		marketBet("b1", "acct-1", rules.Jodi, "45", "10", "950"),    // wins
		marketBet("b2", "acct-2", rules.Jodi, "54", "10", "950"),    // loses
		marketBet("b3", "acct-1", rules.Hurf, "0-4", "10", "95"),    // wins (result[0] == '4')
		marketBet("b4", "acct-3", rules.OddEven, "odd", "10", "19"), // wins (45 is odd)
		marketBet("b5", "acct-2", rules.Cross, "9", "10", "25"),     // loses
	)
	engine := NewEngine(zap.NewNop(), newFakeResults(), bets, nil)

	report, err := engine.DeclareResult(context.Background(), Target{Kind: TargetMarket, ID: "m1"}, "45")
	if err != nil {
		t.Fatalf("DeclareResult: %v", err)
	}

	if report.Won != 3 || report.Lost != 2 || report.Invalid != 0 {
		t.Fatalf("report = %d won / %d lost / %d invalid, want 3/2/0", report.Won, report.Lost, report.Invalid)
	}
	if !report.TotalPaid.Equal(dec("1064")) {
		t.Errorf("total paid = %s, want 1064", report.TotalPaid)
	}
	if !bets.credits["acct-1"].Equal(dec("1045")) {
		t.Errorf("acct-1 credited %s, want 1045", bets.credits["acct-1"])
	}
	if _, credited := bets.credits["acct-2"]; credited {
		t.Error("losing account must not be credited")
	}
	if !report.PaidByAccount["acct-3"].Equal(dec("19")) {
		t.Errorf("acct-3 paid %s, want 19", report.PaidByAccount["acct-3"])
	}
}

func TestDeclareResultTwiceFailsAlreadyDeclared(t *testing.T) {
	bets := newFakeBets(marketBet("b1", "acct-1", rules.Jodi, "45", "10", "950"))
	engine := NewEngine(zap.NewNop(), newFakeResults(), bets, nil)
	target := Target{Kind: TargetMarket, ID: "market-1"}

	if _, err := engine.DeclareResult(context.Background(), target, "45"); err != nil {
		t.Fatalf("first declare: %v", err)
	}
	if _, err := engine.DeclareResult(context.Background(), target, "45"); !errors.Is(err, ErrAlreadyDeclared) {
		t.Fatalf("second declare err = %v, want ErrAlreadyDeclared", err)
	}
	if bets.status["b1"] != "WON" {
		t.Errorf("bet status = %q, want WON", bets.status["b1"])
	}
	if !bets.credits["acct-1"].Equal(dec("950")) {
		t.Errorf("credited %s, want exactly one credit of 950", bets.credits["acct-1"])
	}
}

func TestConcurrentDeclareExactlyOneWinner(t *testing.T) {
	bets := newFakeBets(marketBet("b1", "acct-1", rules.Jodi, "45", "10", "950"))
	engine := NewEngine(zap.NewNop(), newFakeResults(), bets, nil)
	target := Target{Kind: TargetMarket, ID: "market-1"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.DeclareResult(context.Background(), target, "45")
		}(i)
	}
	wg.Wait()

	var ok, declined int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyDeclared):
			declined++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || declined != 1 {
		t.Fatalf("got %d successes and %d ErrAlreadyDeclared, want exactly 1 and 1", ok, declined)
	}
	if !bets.credits["acct-1"].Equal(dec("950")) {
		t.Errorf("credited %s, want a single 950 credit", bets.credits["acct-1"])
	}
}

func TestResumeAfterPartialSettlement(t *testing.T) {
	bets := newFakeBets(
		marketBet("b1", "acct-1", rules.Jodi, "45", "10", "950"),
		marketBet("b2", "acct-2", rules.Jodi, "45", "10", "950"),
	)
	bets.failOn = "b2" // first pass dies on the second bet
	engine := NewEngine(zap.NewNop(), newFakeResults(), bets, nil)
	target := Target{Kind: TargetMarket, ID: "m1"}

	if _, err := engine.DeclareResult(context.Background(), target, "45"); err == nil {
		t.Fatal("expected the first pass to fail")
	}
	if bets.status["b1"] != "WON" {
		t.Fatalf("b1 should have settled before the failure")
	}

	bets.failOn = ""
	report, err := engine.Resume(context.Background(), target)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if report.Won != 1 {
		t.Errorf("resume settled %d bets, want 1 (b1 already done)", report.Won)
	}
	if !bets.credits["acct-1"].Equal(dec("950")) || !bets.credits["acct-2"].Equal(dec("950")) {
		t.Errorf("credits = %v, each account wants exactly 950", bets.credits)
	}
}

func TestResumeUndeclaredTarget(t *testing.T) {
	engine := NewEngine(zap.NewNop(), newFakeResults(), newFakeBets(), nil)
	if _, err := engine.Resume(context.Background(), Target{Kind: TargetMarket, ID: "m1"}); !errors.Is(err, ErrNotDeclared) {
		t.Fatalf("err = %v, want ErrNotDeclared", err)
	}
}

func TestDeclareGuards(t *testing.T) {
	results := newFakeResults()
	results.closed = false
	engine := NewEngine(zap.NewNop(), results, newFakeBets(), nil)
	target := Target{Kind: TargetMarket, ID: "m1"}

	if _, err := engine.DeclareResult(context.Background(), target, "45"); !errors.Is(err, ErrNotClosed) {
		t.Fatalf("err = %v, want ErrNotClosed", err)
	}

	results.closed = true
	if _, err := engine.DeclareResult(context.Background(), target, "4x"); !errors.Is(err, rules.ErrInvalidResult) {
		t.Fatalf("err = %v, want ErrInvalidResult", err)
	}
	if _, err := engine.DeclareResult(context.Background(), Target{Kind: TargetOption, ID: "g1"}, "45"); !errors.Is(err, rules.ErrInvalidResult) {
		t.Fatalf("option result err = %v, want ErrInvalidResult", err)
	}
}

func TestUnparseableSelectionLeftPending(t *testing.T) {
	bets := newFakeBets(
		marketBet("b1", "acct-1", rules.Jodi, "garbage", "10", "950"),
		marketBet("b2", "acct-2", rules.Jodi, "45", "10", "950"),
	)
	engine := NewEngine(zap.NewNop(), newFakeResults(), bets, nil)

	report, err := engine.DeclareResult(context.Background(), Target{Kind: TargetMarket, ID: "m1"}, "45")
	if err != nil {
		t.Fatalf("DeclareResult: %v", err)
	}
	if report.Invalid != 1 || report.Won != 1 {
		t.Fatalf("report = %+v, want 1 invalid and 1 won", report)
	}
	if _, settled := bets.status["b1"]; settled {
		t.Error("unparseable bet must stay pending")
	}
}

func TestOptionGameSettlement(t *testing.T) {
	bets := newFakeBets(
		marketBet("b1", "acct-1", rules.Option, "A", "100", "180"),
		marketBet("b2", "acct-2", rules.Option, "B", "100", "180"),
	)
	engine := NewEngine(zap.NewNop(), newFakeResults(), bets, nil)

	report, err := engine.DeclareResult(context.Background(), Target{Kind: TargetOption, ID: "g1"}, "A")
	if err != nil {
		t.Fatalf("DeclareResult: %v", err)
	}
	if report.Won != 1 || report.Lost != 1 {
		t.Fatalf("report = %d/%d, want 1 won 1 lost", report.Won, report.Lost)
	}
	if !bets.credits["acct-1"].Equal(dec("180")) {
		t.Errorf("acct-1 credited %s, want 180", bets.credits["acct-1"])
	}
}
