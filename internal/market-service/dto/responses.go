package dto

import "time"

type MarketResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	OpeningTime  time.Time  `json:"opening_time"`
	ClosingTime  time.Time  `json:"closing_time"`
	Status       string     `json:"status"`
	ResultStatus string     `json:"result_status"`
	ResultValue  string     `json:"result_value,omitempty"`
	DeclaredAt   *time.Time `json:"declared_at,omitempty"`
}

type OptionGameResponse struct {
	ID           string     `json:"id"`
	TeamA        string     `json:"team_a"`
	TeamB        string     `json:"team_b"`
	OpeningTime  time.Time  `json:"opening_time"`
	ClosingTime  time.Time  `json:"closing_time"`
	Status       string     `json:"status"`
	ResultStatus string     `json:"result_status"`
	WinningTeam  string     `json:"winning_team,omitempty"`
	Odds         string     `json:"odds"`
	DeclaredAt   *time.Time `json:"declared_at,omitempty"`
}

// SettlementReport mirrors settlement.Report for the API.
type SettlementReport struct {
	TargetID      string            `json:"target_id"`
	ResultValue   string            `json:"result_value"`
	Won           int               `json:"won"`
	Lost          int               `json:"lost"`
	Invalid       int               `json:"invalid,omitempty"`
	TotalPaid     string            `json:"total_paid"`
	PaidByAccount map[string]string `json:"paid_by_account,omitempty"`
}
