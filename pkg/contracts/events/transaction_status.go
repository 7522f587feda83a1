package events

import "time"

// Emitted when a pending deposit/withdrawal request reaches a terminal state.
type TransactionStatus struct {
	TxID      string    `json:"tx_id"`
	AccountID string    `json:"account_id"`
	Kind      string    `json:"kind"`   // DEPOSIT | WITHDRAWAL
	Status    string    `json:"status"` // APPROVED | REJECTED
	Amount    string    `json:"amount"` // decimal string
	Ts        time.Time `json:"ts"`
}
