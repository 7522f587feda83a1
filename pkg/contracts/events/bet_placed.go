package events

type BetPlaced struct {
	BetID            string `json:"bet_id"`
	AccountID        string `json:"account_id"`
	TargetKind       string `json:"target_kind"` // MARKET | OPTION
	TargetID         string `json:"target_id"`
	GameType         string `json:"game_type,omitempty"` // market bets only
	Selection        string `json:"selection"`           // canonical encoding
	Amount           string `json:"amount"`              // decimal string
	PotentialWinning string `json:"potential_winning"`   // decimal string
	TsUnixMs         int64  `json:"ts_unix_ms"`
}
