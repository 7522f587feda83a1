package events

import "time"

// Published right after the result transition commits. The settlement worker
// consumes this as its resume trigger: re-settling a declared target is a
// no-op for bets that already left PENDING.
type ResultDeclared struct {
	TargetKind  string    `json:"target_kind"` // MARKET | OPTION
	TargetID    string    `json:"target_id"`
	ResultValue string    `json:"result_value"` // 2-digit string, or "A"/"B" for option games
	DeclaredAt  time.Time `json:"declared_at"`
}
