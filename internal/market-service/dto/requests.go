package dto

import "time"

type CreateMarketRequest struct {
	Name        string    `json:"name"`
	OpeningTime time.Time `json:"opening_time"`
	ClosingTime time.Time `json:"closing_time"`
}

type SetGameConfigRequest struct {
	GameType string `json:"game_type"`           // JODI | HURF | CROSS | ODD_EVEN
	Odds     string `json:"odds"`                // decimal string
	BothOdds string `json:"both_odds,omitempty"` // HURF only
	Active   *bool  `json:"active,omitempty"`    // defaults to true
}

type CreateOptionGameRequest struct {
	TeamA       string    `json:"team_a"`
	TeamB       string    `json:"team_b"`
	OpeningTime time.Time `json:"opening_time"`
	ClosingTime time.Time `json:"closing_time"`
	Odds        string    `json:"odds"`
}

type DeclareResultRequest struct {
	ResultValue string `json:"result_value"` // 2 digits for markets, "A"/"B" for option games
}
