package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matkabet/numbers-bet-platform/internal/bets"
	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/markets"
	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
)

type fakeTargets struct {
	market markets.Market
	game   markets.OptionGame
}

func (f *fakeTargets) GetMarket(_ context.Context, id string) (markets.Market, error) {
	if id != f.market.ID {
		return markets.Market{}, markets.ErrNotFound
	}
	return f.market, nil
}

func (f *fakeTargets) GetOptionGame(_ context.Context, id string) (markets.OptionGame, error) {
	if id != f.game.ID {
		return markets.OptionGame{}, markets.ErrNotFound
	}
	return f.game, nil
}

type fakeOdds struct {
	odds, both decimal.Decimal
	missing    bool
}

func (f *fakeOdds) MarketOdds(context.Context, string, rules.GameType) (decimal.Decimal, decimal.Decimal, error) {
	if f.missing {
		return decimal.Zero, decimal.Zero, markets.ErrNotFound
	}
	return f.odds, f.both, nil
}

type fakeWriter struct {
	placed *bets.Bet
	err    error
}

func (f *fakeWriter) Place(_ context.Context, b *bets.Bet) error {
	if f.err != nil {
		return f.err
	}
	f.placed = b
	return nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func openMarket() markets.Market {
	now := time.Now()
	return markets.Market{
		ID:          "m1",
		Status:      markets.StatusOpen,
		OpeningTime: now.Add(-time.Hour),
		ClosingTime: now.Add(time.Hour),
	}
}

func newRegistry(t *fakeTargets, o *fakeOdds, w *fakeWriter) *Registry {
	return New(t, o, w)
}

func TestPlaceMarketBet(t *testing.T) {
	w := &fakeWriter{}
	r := newRegistry(&fakeTargets{market: openMarket()}, &fakeOdds{odds: dec("9.5"), both: dec("95")}, w)

	b, err := r.PlaceBet(context.Background(), PlaceRequest{
		AccountID:  "acct-1",
		TargetKind: settlement.TargetMarket,
		TargetID:   "m1",
		GameType:   "JODI",
		Selection:  "45",
		Amount:     dec("10"),
	})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if !b.PotentialWinning.Equal(dec("95")) {
		t.Errorf("potential = %s, want 95 (10 x 9.5)", b.PotentialWinning)
	}
	if w.placed == nil || w.placed.Selection != "45" || w.placed.Game != rules.Jodi {
		t.Errorf("stored bet = %+v", w.placed)
	}
}

func TestHurfBothUsesConfiguredBothOdds(t *testing.T) {
	w := &fakeWriter{}
	r := newRegistry(&fakeTargets{market: openMarket()}, &fakeOdds{odds: dec("9.5"), both: dec("95")}, w)

	b, err := r.PlaceBet(context.Background(), PlaceRequest{
		AccountID:  "acct-1",
		TargetKind: settlement.TargetMarket,
		TargetID:   "m1",
		GameType:   "HURF",
		Selection:  "45", // two digits = Both mode
		Amount:     dec("2"),
	})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if !b.PotentialWinning.Equal(dec("190")) {
		t.Errorf("potential = %s, want 190 (2 x 95)", b.PotentialWinning)
	}

	// single-position hurf sticks to the base odds
	b, err = r.PlaceBet(context.Background(), PlaceRequest{
		AccountID:  "acct-1",
		TargetKind: settlement.TargetMarket,
		TargetID:   "m1",
		GameType:   "HURF",
		Selection:  "0-4",
		Amount:     dec("2"),
	})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if !b.PotentialWinning.Equal(dec("19")) {
		t.Errorf("potential = %s, want 19 (2 x 9.5)", b.PotentialWinning)
	}
}

func TestHurfBothWithoutConfiguredOdds(t *testing.T) {
	r := newRegistry(&fakeTargets{market: openMarket()}, &fakeOdds{odds: dec("9.5")}, &fakeWriter{})

	_, err := r.PlaceBet(context.Background(), PlaceRequest{
		AccountID:  "acct-1",
		TargetKind: settlement.TargetMarket,
		TargetID:   "m1",
		GameType:   "HURF",
		Selection:  "45",
		Amount:     dec("2"),
	})
	if !errors.Is(err, ErrGameNotOffered) {
		t.Fatalf("err = %v, want ErrGameNotOffered", err)
	}
}

func TestPlaceOptionBet(t *testing.T) {
	now := time.Now()
	w := &fakeWriter{}
	r := newRegistry(&fakeTargets{game: markets.OptionGame{
		ID:          "g1",
		Status:      markets.StatusOpen,
		ClosingTime: now.Add(time.Hour),
		Odds:        dec("1.8"),
	}}, &fakeOdds{}, w)

	b, err := r.PlaceBet(context.Background(), PlaceRequest{
		AccountID:  "acct-1",
		TargetKind: settlement.TargetOption,
		TargetID:   "g1",
		Selection:  "a",
		Amount:     dec("100"),
	})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if b.Selection != "A" || b.Game != rules.Option {
		t.Errorf("bet = %+v, want canonical selection A", b)
	}
	if !b.PotentialWinning.Equal(dec("180")) {
		t.Errorf("potential = %s, want 180", b.PotentialWinning)
	}
}

func TestPlaceBetValidation(t *testing.T) {
	closed := openMarket()
	closed.Status = markets.StatusClosed

	pastClosing := openMarket()
	pastClosing.ClosingTime = time.Now().Add(-time.Minute)

	upcoming := openMarket()
	upcoming.Status = markets.StatusUpcoming

	base := PlaceRequest{
		AccountID:  "acct-1",
		TargetKind: settlement.TargetMarket,
		TargetID:   "m1",
		GameType:   "JODI",
		Selection:  "45",
		Amount:     dec("10"),
	}

	cases := []struct {
		name    string
		market  markets.Market
		mutate  func(*PlaceRequest)
		wantErr error
	}{
		{"closed market", closed, nil, ErrMarketClosed},
		{"open but past closing time", pastClosing, nil, ErrMarketClosed},
		{"upcoming market", upcoming, nil, ErrMarketClosed},
		{"zero amount", openMarket(), func(r *PlaceRequest) { r.Amount = decimal.Zero }, ledger.ErrInvalidAmount},
		{"negative amount", openMarket(), func(r *PlaceRequest) { r.Amount = dec("-5") }, ledger.ErrInvalidAmount},
		{"bad selection", openMarket(), func(r *PlaceRequest) { r.Selection = "4" }, rules.ErrInvalidSelection},
		{"bad game type", openMarket(), func(r *PlaceRequest) { r.GameType = "TRIPLE" }, rules.ErrUnknownGameType},
		{"unknown market", openMarket(), func(r *PlaceRequest) { r.TargetID = "other" }, markets.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := &fakeWriter{}
			r := newRegistry(&fakeTargets{market: tc.market}, &fakeOdds{odds: dec("9.5")}, w)
			req := base
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			_, err := r.PlaceBet(context.Background(), req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if w.placed != nil {
				t.Error("no bet may be written when validation fails")
			}
		})
	}
}

func TestInsufficientFundsLeavesNoBet(t *testing.T) {
	w := &fakeWriter{err: ledger.ErrInsufficientFunds}
	r := newRegistry(&fakeTargets{market: openMarket()}, &fakeOdds{odds: dec("9.5")}, w)

	_, err := r.PlaceBet(context.Background(), PlaceRequest{
		AccountID:  "acct-1",
		TargetKind: settlement.TargetMarket,
		TargetID:   "m1",
		GameType:   "JODI",
		Selection:  "45",
		Amount:     dec("10"),
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestGameNotConfigured(t *testing.T) {
	r := newRegistry(&fakeTargets{market: openMarket()}, &fakeOdds{missing: true}, &fakeWriter{})

	_, err := r.PlaceBet(context.Background(), PlaceRequest{
		AccountID:  "acct-1",
		TargetKind: settlement.TargetMarket,
		TargetID:   "m1",
		GameType:   "CROSS",
		Selection:  "7",
		Amount:     dec("10"),
	})
	if !errors.Is(err, ErrGameNotOffered) {
		t.Fatalf("err = %v, want ErrGameNotOffered", err)
	}
}
