package events

// Event published on the "balance_changed" topic after every committed
// balance mutation (deposit approval, withdrawal approval, bet debit,
// winning credit).
type BalanceChanged struct {
	AccountID  string `json:"account_id"`
	Kind       string `json:"kind"`        // DEPOSIT | WITHDRAWAL | BET_DEBIT | WINNING_CREDIT | ADJUSTMENT
	Amount     string `json:"amount"`      // decimal string, always positive
	NewBalance string `json:"new_balance"` // decimal string
	TxID       string `json:"tx_id"`
	TsUnixMs   int64  `json:"ts_unix_ms"`
}
