package topics

const (
	// Wallet
	BalanceChanged    = "balance_changed"
	TransactionStatus = "transaction_status"

	// Bets
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Markets / option games
	ResultDeclared = "result_declared"

	// DLQs
	ResultDeclaredDLQ = "result_declared_dlq"
)
