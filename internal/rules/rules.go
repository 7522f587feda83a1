package rules

import (
	"strconv"
	"strings"
)

// Evaluate decides win/lose for a parsed selection against a declared result.
// It is pure: no odds, no payouts, no state. Odds are fixed at placement time
// and never recomputed here.
//
// resultValue is the two-digit market result, or "A"/"B" for option games.
func Evaluate(sel Selection, resultValue string) (bool, error) {
	switch sel.Game {
	case Jodi:
		if err := ValidateMarketResult(resultValue); err != nil {
			return false, err
		}
		return sel.Jodi == resultValue, nil

	case Hurf:
		if err := ValidateMarketResult(resultValue); err != nil {
			return false, err
		}
		switch sel.HurfMode {
		case HurfBoth:
			return sel.HurfPair == resultValue, nil
		case HurfLeft:
			return resultValue[0] == sel.HurfDigit, nil
		default:
			return resultValue[1] == sel.HurfDigit, nil
		}

	case Cross:
		if err := ValidateMarketResult(resultValue); err != nil {
			return false, err
		}
		return strings.ContainsAny(resultValue, sel.Digits), nil

	case OddEven:
		n, err := strconv.Atoi(resultValue)
		if err != nil {
			return false, ErrInvalidResult
		}
		return (n%2 == 1) == sel.Odd, nil

	case Option:
		if err := ValidateOptionResult(resultValue); err != nil {
			return false, err
		}
		return sel.Team == resultValue, nil
	}

	return false, ErrUnknownGameType
}

// ValidateMarketResult enforces the two-digit result format ("00".."99").
func ValidateMarketResult(v string) error {
	if len(v) != 2 || !isDigits(v) {
		return ErrInvalidResult
	}
	return nil
}

// ValidateOptionResult enforces the winning-team format.
func ValidateOptionResult(v string) error {
	if v != "A" && v != "B" {
		return ErrInvalidResult
	}
	return nil
}
