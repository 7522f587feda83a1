package dto

type CreateTransactionRequest struct {
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"`   // DEPOSIT | WITHDRAWAL
	Amount    string `json:"amount"` // decimal string, positive
}

type SettleTransactionRequest struct {
	TxID    string `json:"tx_id"`
	Outcome string `json:"outcome"` // approve | reject
}
