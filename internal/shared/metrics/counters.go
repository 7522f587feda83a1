package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BetsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matka_bets_placed_total",
		Help: "Bets accepted by the registry.",
	})

	BetsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matka_bets_settled_total",
		Help: "Bets settled, by outcome.",
	}, []string{"outcome"}) // won | lost | invalid

	LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matka_ledger_mutations_total",
		Help: "Committed balance mutations, by transaction kind.",
	}, []string{"kind"})

	SettlementRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matka_settlement_runs_total",
		Help: "Settlement passes, by trigger.",
	}, []string{"trigger"}) // declare | resume
)
