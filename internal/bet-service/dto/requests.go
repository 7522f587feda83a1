package dto

type PlaceBetRequest struct {
	AccountID  string `json:"account_id"`
	TargetKind string `json:"target_kind"` // MARKET | OPTION
	TargetID   string `json:"target_id"`
	GameType   string `json:"game_type,omitempty"` // market bets only
	Selection  string `json:"selection"`
	Amount     string `json:"amount"` // decimal string
}
