package rules

import (
	"errors"
	"sort"
	"strings"
)

type GameType string

const (
	Jodi    GameType = "JODI"
	Hurf    GameType = "HURF"
	Cross   GameType = "CROSS"
	OddEven GameType = "ODD_EVEN"
	Option  GameType = "OPTION"
)

// HurfMode says which half of the two-digit result a HURF selection targets.
type HurfMode int

const (
	HurfLeft  HurfMode = iota // digit must match result[0]
	HurfRight                 // digit must match result[1]
	HurfBoth                  // full two-digit match, paid at the Both odds
)

var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidResult    = errors.New("invalid result value")
	ErrUnknownGameType  = errors.New("unknown game type")
)

// Selection is the parsed form of a player's pick. Raw selection strings are
// parsed exactly once, at bet placement; settlement only ever sees values
// that round-tripped through Parse.
type Selection struct {
	Game GameType

	Jodi      string   // JODI: two digits
	HurfMode  HurfMode // HURF
	HurfPair  string   // HURF both mode: two digits
	HurfDigit byte     // HURF left/right mode: '0'..'9'
	Digits    string   // CROSS: sorted unique digits
	Odd       bool     // ODD_EVEN
	Team      string   // OPTION: "A" or "B"
}

// ParseGameType validates the game-type label used on market bets.
func ParseGameType(s string) (GameType, error) {
	switch GameType(strings.ToUpper(s)) {
	case Jodi:
		return Jodi, nil
	case Hurf:
		return Hurf, nil
	case Cross:
		return Cross, nil
	case OddEven:
		return OddEven, nil
	default:
		return "", ErrUnknownGameType
	}
}

// Parse validates a raw selection string against the grammar of the given
// game type and returns its tagged form.
//
// Grammars:
//
//	JODI     two digits, ex "45"
//	HURF     "<position>-<digit>" with position 0 (left) or 1 (right),
//	         or two digits for the Both mode, ex "0-5", "45"
//	CROSS    one or more digits, ex "7", "137"
//	ODD_EVEN "odd" or "even" (case-insensitive)
//	OPTION   "A" or "B"
func Parse(game GameType, raw string) (Selection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selection{}, ErrInvalidSelection
	}

	switch game {
	case Jodi:
		if !isDigits(raw) || len(raw) != 2 {
			return Selection{}, ErrInvalidSelection
		}
		return Selection{Game: Jodi, Jodi: raw}, nil

	case Hurf:
		if isDigits(raw) && len(raw) == 2 {
			return Selection{Game: Hurf, HurfMode: HurfBoth, HurfPair: raw}, nil
		}
		parts := strings.SplitN(raw, "-", 2)
		if len(parts) != 2 || len(parts[1]) != 1 || !isDigits(parts[1]) {
			return Selection{}, ErrInvalidSelection
		}
		var mode HurfMode
		switch parts[0] {
		case "0":
			mode = HurfLeft
		case "1":
			mode = HurfRight
		default:
			return Selection{}, ErrInvalidSelection
		}
		return Selection{Game: Hurf, HurfMode: mode, HurfDigit: parts[1][0]}, nil

	case Cross:
		if !isDigits(raw) || len(raw) > 10 {
			return Selection{}, ErrInvalidSelection
		}
		return Selection{Game: Cross, Digits: uniqueSorted(raw)}, nil

	case OddEven:
		switch strings.ToLower(raw) {
		case "odd":
			return Selection{Game: OddEven, Odd: true}, nil
		case "even":
			return Selection{Game: OddEven, Odd: false}, nil
		}
		return Selection{}, ErrInvalidSelection

	case Option:
		team := strings.ToUpper(raw)
		if team != "A" && team != "B" {
			return Selection{}, ErrInvalidSelection
		}
		return Selection{Game: Option, Team: team}, nil
	}

	return Selection{}, ErrUnknownGameType
}

// Encode returns the canonical string persisted with a bet. Encode∘Parse is
// the identity on canonical strings.
func (s Selection) Encode() string {
	switch s.Game {
	case Jodi:
		return s.Jodi
	case Hurf:
		switch s.HurfMode {
		case HurfBoth:
			return s.HurfPair
		case HurfLeft:
			return "0-" + string(s.HurfDigit)
		default:
			return "1-" + string(s.HurfDigit)
		}
	case Cross:
		return s.Digits
	case OddEven:
		if s.Odd {
			return "odd"
		}
		return "even"
	case Option:
		return s.Team
	}
	return ""
}

// UsesBothOdds reports whether the selection is paid at the HURF Both
// multiplier instead of the game type's base odds.
func (s Selection) UsesBothOdds() bool {
	return s.Game == Hurf && s.HurfMode == HurfBoth
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func uniqueSorted(s string) string {
	seen := make(map[byte]bool, len(s))
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if !seen[s[i]] {
			seen[s[i]] = true
			out = append(out, s[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return string(out)
}
