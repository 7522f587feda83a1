package markets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/matkabet/numbers-bet-platform/internal/rules"
)

type Status string

const (
	StatusUpcoming Status = "UPCOMING"
	StatusOpen     Status = "OPEN"
	StatusClosed   Status = "CLOSED"
)

type ResultStatus string

const (
	ResultPending  ResultStatus = "PENDING"
	ResultDeclared ResultStatus = "DECLARED"
)

type Market struct {
	ID           string
	Name         string
	OpeningTime  time.Time
	ClosingTime  time.Time
	Status       Status
	ResultStatus ResultStatus
	ResultValue  string // set exactly once, two digits
	DeclaredAt   *time.Time
}

// GameTypeConfig carries the odds multiplier for one game type on one
// market. BothOdds is the distinct, higher multiplier for the HURF Both
// mode; it is fixed here at configuration time, never derived later.
type GameTypeConfig struct {
	MarketID string
	GameType rules.GameType
	Odds     decimal.Decimal
	BothOdds decimal.Decimal
	Active   bool
}

type OptionGame struct {
	ID           string
	TeamA        string
	TeamB        string
	OpeningTime  time.Time
	ClosingTime  time.Time
	Status       Status
	ResultStatus ResultStatus
	WinningTeam  string // "A" or "B", set exactly once
	Odds         decimal.Decimal
	DeclaredAt   *time.Time
}
