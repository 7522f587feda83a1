package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/bet-service/odds"
	"github.com/matkabet/numbers-bet-platform/internal/markets"
)

// OddsCache mirrors game-type configs into Redis under the same keys the
// bet-service reads. Best-effort: a Redis failure never fails the write path,
// the bet-service falls back to the database.
type OddsCache struct {
	log *zap.Logger
	rdb *redis.Client
	ttl time.Duration
}

func NewOddsCache(log *zap.Logger, rdb *redis.Client, ttl time.Duration) *OddsCache {
	return &OddsCache{log: log, rdb: rdb, ttl: ttl}
}

func (c *OddsCache) Mirror(ctx context.Context, cfg markets.GameTypeConfig) {
	if c.rdb == nil {
		return
	}
	key := odds.Key(cfg.MarketID, cfg.GameType)
	if !cfg.Active {
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			c.log.Warn("evict odds cache", zap.String("key", key), zap.Error(err))
		}
		return
	}

	entry := struct {
		Odds     string `json:"odds"`
		BothOdds string `json:"both_odds,omitempty"`
	}{Odds: cfg.Odds.String()}
	if !cfg.BothOdds.IsZero() {
		entry.BothOdds = cfg.BothOdds.String()
	}
	b, _ := json.Marshal(entry)
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("mirror odds cache", zap.String("key", key), zap.Error(err))
	}
}
