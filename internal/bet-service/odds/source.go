package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/matkabet/numbers-bet-platform/internal/markets"
	"github.com/matkabet/numbers-bet-platform/internal/rules"
)

// Key "odds:{marketID}:{gameType}" holds the current multipliers as JSON.
// market-service mirrors every config change here; this side only reads.
func Key(marketID string, game rules.GameType) string {
	return fmt.Sprintf("odds:%s:%s", marketID, game)
}

type cachedOdds struct {
	Odds     string `json:"odds"`
	BothOdds string `json:"both_odds,omitempty"`
}

// Source resolves the odds for a market game type, Redis first with a
// database fallback (write-through on miss).
type Source struct {
	Rdb     *redis.Client
	Configs *markets.Postgres
	TTL     time.Duration
}

func NewSource(rdb *redis.Client, configs *markets.Postgres, ttl time.Duration) *Source {
	return &Source{Rdb: rdb, Configs: configs, TTL: ttl}
}

func (s *Source) MarketOdds(ctx context.Context, marketID string, game rules.GameType) (odds, bothOdds decimal.Decimal, err error) {
	if s.Rdb != nil {
		if raw, cerr := s.Rdb.Get(ctx, Key(marketID, game)).Result(); cerr == nil {
			var c cachedOdds
			if jerr := json.Unmarshal([]byte(raw), &c); jerr == nil {
				if odds, bothOdds, err = parse(c); err == nil {
					return odds, bothOdds, nil
				}
			}
			// fall through to the database on a corrupt entry
		}
	}

	cfg, err := s.Configs.GameConfig(ctx, marketID, game)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	if s.Rdb != nil {
		c := cachedOdds{Odds: cfg.Odds.String()}
		if !cfg.BothOdds.IsZero() {
			c.BothOdds = cfg.BothOdds.String()
		}
		if b, jerr := json.Marshal(c); jerr == nil {
			_ = s.Rdb.Set(ctx, Key(marketID, game), b, s.TTL).Err()
		}
	}
	return cfg.Odds, cfg.BothOdds, nil
}

func parse(c cachedOdds) (decimal.Decimal, decimal.Decimal, error) {
	odds, err := decimal.NewFromString(c.Odds)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	both := decimal.Zero
	if c.BothOdds != "" {
		if both, err = decimal.NewFromString(c.BothOdds); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	return odds, both, nil
}
