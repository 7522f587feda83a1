package markets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
)

var ErrNotFound = errors.New("not found")

// Postgres persists markets, option games and their game-type configs.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) CreateMarket(ctx context.Context, name string, opening, closing time.Time) (Market, error) {
	m := Market{
		ID:           uuid.NewString(),
		Name:         name,
		OpeningTime:  opening,
		ClosingTime:  closing,
		Status:       StatusUpcoming,
		ResultStatus: ResultPending,
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO markets (id, name, opening_time, closing_time, status, result_status)
		VALUES ($1,$2,$3,$4,'UPCOMING','PENDING')`,
		m.ID, m.Name, m.OpeningTime, m.ClosingTime)
	if err != nil {
		return Market{}, err
	}
	return m, nil
}

func (p *Postgres) GetMarket(ctx context.Context, id string) (Market, error) {
	var m Market
	var result sql.NullString
	var declared sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, opening_time, closing_time, status, result_status, result_value, declared_at
		FROM markets WHERE id=$1`, id).
		Scan(&m.ID, &m.Name, &m.OpeningTime, &m.ClosingTime, &m.Status, &m.ResultStatus, &result, &declared)
	if err == sql.ErrNoRows {
		return Market{}, ErrNotFound
	}
	if err != nil {
		return Market{}, err
	}
	if result.Valid {
		m.ResultValue = result.String
	}
	if declared.Valid {
		ts := declared.Time
		m.DeclaredAt = &ts
	}
	return m, nil
}

func (p *Postgres) OpenMarkets(ctx context.Context) ([]Market, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, opening_time, closing_time, status, result_status
		FROM markets WHERE status='OPEN' ORDER BY closing_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Market
	for rows.Next() {
		var m Market
		if err := rows.Scan(&m.ID, &m.Name, &m.OpeningTime, &m.ClosingTime, &m.Status, &m.ResultStatus); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetGameConfig upserts the odds configuration for one game type on a market.
func (p *Postgres) SetGameConfig(ctx context.Context, c GameTypeConfig) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO market_game_configs (market_id, game_type, odds, both_odds, active)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (market_id, game_type)
		DO UPDATE SET odds=EXCLUDED.odds, both_odds=EXCLUDED.both_odds, active=EXCLUDED.active`,
		c.MarketID, string(c.GameType), c.Odds, nullableDecimal(c.BothOdds), c.Active)
	return err
}

// GameConfig returns the active odds config for a game type on a market.
func (p *Postgres) GameConfig(ctx context.Context, marketID string, game rules.GameType) (GameTypeConfig, error) {
	var c GameTypeConfig
	var both sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT market_id, game_type, odds, both_odds, active
		FROM market_game_configs WHERE market_id=$1 AND game_type=$2 AND active`,
		marketID, string(game)).
		Scan(&c.MarketID, &c.GameType, &c.Odds, &both, &c.Active)
	if err == sql.ErrNoRows {
		return GameTypeConfig{}, ErrNotFound
	}
	if err != nil {
		return GameTypeConfig{}, err
	}
	if both.Valid {
		c.BothOdds, err = decimal.NewFromString(both.String)
		if err != nil {
			return GameTypeConfig{}, err
		}
	}
	return c, nil
}

func (p *Postgres) GameConfigs(ctx context.Context, marketID string) ([]GameTypeConfig, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT market_id, game_type, odds, both_odds, active
		FROM market_game_configs WHERE market_id=$1`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameTypeConfig
	for rows.Next() {
		var c GameTypeConfig
		var both sql.NullString
		if err := rows.Scan(&c.MarketID, &c.GameType, &c.Odds, &both, &c.Active); err != nil {
			return nil, err
		}
		if both.Valid {
			if c.BothOdds, err = decimal.NewFromString(both.String); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateOptionGame(ctx context.Context, teamA, teamB string, opening, closing time.Time, odds decimal.Decimal) (OptionGame, error) {
	g := OptionGame{
		ID:           uuid.NewString(),
		TeamA:        teamA,
		TeamB:        teamB,
		OpeningTime:  opening,
		ClosingTime:  closing,
		Status:       StatusUpcoming,
		ResultStatus: ResultPending,
		Odds:         odds,
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO option_games (id, team_a, team_b, opening_time, closing_time, status, result_status, odds)
		VALUES ($1,$2,$3,$4,$5,'UPCOMING','PENDING',$6)`,
		g.ID, g.TeamA, g.TeamB, g.OpeningTime, g.ClosingTime, g.Odds)
	if err != nil {
		return OptionGame{}, err
	}
	return g, nil
}

func (p *Postgres) GetOptionGame(ctx context.Context, id string) (OptionGame, error) {
	var g OptionGame
	var winning sql.NullString
	var declared sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, team_a, team_b, opening_time, closing_time, status, result_status, winning_team, odds, declared_at
		FROM option_games WHERE id=$1`, id).
		Scan(&g.ID, &g.TeamA, &g.TeamB, &g.OpeningTime, &g.ClosingTime, &g.Status, &g.ResultStatus, &winning, &g.Odds, &declared)
	if err == sql.ErrNoRows {
		return OptionGame{}, ErrNotFound
	}
	if err != nil {
		return OptionGame{}, err
	}
	if winning.Valid {
		g.WinningTeam = winning.String
	}
	if declared.Valid {
		ts := declared.Time
		g.DeclaredAt = &ts
	}
	return g, nil
}

// OpenDue flips UPCOMING targets whose opening time has passed to OPEN.
// Driven by the market-service cron.
func (p *Postgres) OpenDue(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"markets", "option_games"} {
		res, err := p.db.ExecContext(ctx,
			`UPDATE `+table+` SET status='OPEN' WHERE status='UPCOMING' AND opening_time <= $1`, now)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// CloseDue flips OPEN targets whose closing time has passed to CLOSED.
func (p *Postgres) CloseDue(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"markets", "option_games"} {
		res, err := p.db.ExecContext(ctx,
			`UPDATE `+table+` SET status='CLOSED' WHERE status='OPEN' AND closing_time <= $1`, now)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Close is the admin override for a single market or option game.
func (p *Postgres) Close(ctx context.Context, target settlement.Target) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE `+tableFor(target.Kind)+` SET status='CLOSED' WHERE id=$1 AND status <> 'CLOSED'`, target.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Declare performs the result transition. The conditional UPDATE on
// result_status is the linearization point: of any number of concurrent
// declarations for the same target, exactly one sees a row change; the rest
// get ErrAlreadyDeclared.
func (p *Postgres) Declare(ctx context.Context, target settlement.Target, resultValue string) error {
	var status string
	var closing time.Time
	err := p.db.QueryRowContext(ctx,
		`SELECT status, closing_time FROM `+tableFor(target.Kind)+` WHERE id=$1`, target.ID).
		Scan(&status, &closing)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if Status(status) != StatusClosed && time.Now().Before(closing) {
		return settlement.ErrNotClosed
	}

	var res sql.Result
	if target.Kind == settlement.TargetMarket {
		res, err = p.db.ExecContext(ctx, `
			UPDATE markets SET result_status='DECLARED', result_value=$1, status='CLOSED', declared_at=NOW()
			WHERE id=$2 AND result_status='PENDING'`, resultValue, target.ID)
	} else {
		res, err = p.db.ExecContext(ctx, `
			UPDATE option_games SET result_status='DECLARED', winning_team=$1, status='CLOSED', declared_at=NOW()
			WHERE id=$2 AND result_status='PENDING'`, resultValue, target.ID)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return settlement.ErrAlreadyDeclared
	}
	return nil
}

// DeclaredResult returns the stored result of an already-declared target.
// Used by the settlement resume path, which must never re-declare.
func (p *Postgres) DeclaredResult(ctx context.Context, target settlement.Target) (string, error) {
	col := "result_value"
	if target.Kind == settlement.TargetOption {
		col = "winning_team"
	}
	var resultStatus string
	var value sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT result_status, `+col+` FROM `+tableFor(target.Kind)+` WHERE id=$1`, target.ID).
		Scan(&resultStatus, &value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if ResultStatus(resultStatus) != ResultDeclared || !value.Valid {
		return "", settlement.ErrNotDeclared
	}
	return value.String, nil
}

func tableFor(kind settlement.TargetKind) string {
	if kind == settlement.TargetOption {
		return "option_games"
	}
	return "markets"
}

func nullableDecimal(d decimal.Decimal) interface{} {
	if d.IsZero() {
		return nil
	}
	return d
}
