package dto

import "time"

type AccountResponse struct {
	AccountID string `json:"account_id"`
	UserID    string `json:"user_id"`
	Balance   string `json:"balance"`
}

type TransactionResponse struct {
	TxID      string     `json:"tx_id"`
	AccountID string     `json:"account_id"`
	Kind      string     `json:"kind"`
	Amount    string     `json:"amount"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

type ReconcileResponse struct {
	AccountID  string `json:"account_id"`
	Balance    string `json:"balance"`
	Replayed   string `json:"replayed"`
	Consistent bool   `json:"consistent"`
}
