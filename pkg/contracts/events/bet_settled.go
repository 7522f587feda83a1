package events

import "time"

// Emitted by the settlement engine for every bet it moves out of PENDING.
type BetSettled struct {
	BetID     string    `json:"bet_id"`
	AccountID string    `json:"account_id"`
	TargetID  string    `json:"target_id"`
	Status    string    `json:"status"`           // WON | LOST
	Payout    string    `json:"payout,omitempty"` // decimal string, winners only
	Ts        time.Time `json:"ts"`
}
