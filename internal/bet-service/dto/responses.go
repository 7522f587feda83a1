package dto

import "time"

type BetResponse struct {
	BetID            string     `json:"bet_id"`
	AccountID        string     `json:"account_id"`
	TargetKind       string     `json:"target_kind"`
	TargetID         string     `json:"target_id"`
	GameType         string     `json:"game_type,omitempty"`
	Selection        string     `json:"selection"` // canonical encoding
	Amount           string     `json:"amount"`
	PotentialWinning string     `json:"potential_winning"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
}
