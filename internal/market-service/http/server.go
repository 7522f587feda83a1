package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/market-service/cache"
	"github.com/matkabet/numbers-bet-platform/internal/market-service/dto"
	"github.com/matkabet/numbers-bet-platform/internal/markets"
	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
	"github.com/matkabet/numbers-bet-platform/pkg/contracts/events"
)

type Server struct {
	log    *zap.Logger
	repo   *markets.Postgres
	engine *settlement.Engine
	odds   *cache.OddsCache
	publ   interface {
		PublishResultDeclared(context.Context, events.ResultDeclared) error
	}
}

func NewServer(log *zap.Logger, repo *markets.Postgres, engine *settlement.Engine, odds *cache.OddsCache, p interface {
	PublishResultDeclared(context.Context, events.ResultDeclared) error
}) *Server {
	return &Server{log: log, repo: repo, engine: engine, odds: odds, publ: p}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/markets", s.handleMarkets)          // POST create
	mux.HandleFunc("/markets/open", s.openMarkets)       // GET
	mux.HandleFunc("/markets/", s.handleMarket)          // GET {id}, POST {id}/configs|result|close
	mux.HandleFunc("/option-games", s.createOptionGame)  // POST
	mux.HandleFunc("/option-games/", s.handleOptionGame) // GET {id}, POST {id}/result|close
	return mux
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Name == "" || !req.ClosingTime.After(req.OpeningTime) {
		http.Error(w, "name required and closing_time must come after opening_time", http.StatusBadRequest)
		return
	}
	m, err := s.repo.CreateMarket(r.Context(), req.Name, req.OpeningTime, req.ClosingTime)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toMarketResponse(m))
}

func (s *Server) openMarkets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.repo.OpenMarkets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.MarketResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMarketResponse(m))
	}
	writeJSON(w, out)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(strings.TrimPrefix(r.URL.Path, "/markets/"))
	if id == "" {
		http.Error(w, "market id required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getMarket(w, r, id)
	case action == "configs" && r.Method == http.MethodPost:
		s.setGameConfig(w, r, id)
	case action == "configs" && r.Method == http.MethodGet:
		s.gameConfigs(w, r, id)
	case action == "result" && r.Method == http.MethodPost:
		s.declare(w, r, settlement.Target{Kind: settlement.TargetMarket, ID: id})
	case action == "close" && r.Method == http.MethodPost:
		s.close(w, r, settlement.Target{Kind: settlement.TargetMarket, ID: id})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request, id string) {
	m, err := s.repo.GetMarket(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, toMarketResponse(m))
}

func (s *Server) setGameConfig(w http.ResponseWriter, r *http.Request, marketID string) {
	var req dto.SetGameConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	game, err := rules.ParseGameType(req.GameType)
	if err != nil || game == rules.Option {
		http.Error(w, "game_type must be JODI, HURF, CROSS or ODD_EVEN", http.StatusBadRequest)
		return
	}

	odds, err := decimal.NewFromString(req.Odds)
	if err != nil || !odds.IsPositive() {
		http.Error(w, "odds must be a positive decimal", http.StatusBadRequest)
		return
	}
	both := decimal.Zero
	if req.BothOdds != "" {
		if game != rules.Hurf {
			http.Error(w, "both_odds applies to HURF only", http.StatusBadRequest)
			return
		}
		if both, err = decimal.NewFromString(req.BothOdds); err != nil || !both.IsPositive() {
			http.Error(w, "both_odds must be a positive decimal", http.StatusBadRequest)
			return
		}
	}

	if _, err := s.repo.GetMarket(r.Context(), marketID); err != nil {
		writeError(w, err)
		return
	}

	cfg := markets.GameTypeConfig{
		MarketID: marketID,
		GameType: game,
		Odds:     odds,
		BothOdds: both,
		Active:   req.Active == nil || *req.Active,
	}
	if err := s.repo.SetGameConfig(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	s.odds.Mirror(r.Context(), cfg)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) gameConfigs(w http.ResponseWriter, r *http.Request, marketID string) {
	configs, err := s.repo.GameConfigs(r.Context(), marketID)
	if err != nil {
		writeError(w, err)
		return
	}
	type item struct {
		GameType string `json:"game_type"`
		Odds     string `json:"odds"`
		BothOdds string `json:"both_odds,omitempty"`
		Active   bool   `json:"active"`
	}
	out := make([]item, 0, len(configs))
	for _, c := range configs {
		it := item{GameType: string(c.GameType), Odds: c.Odds.String(), Active: c.Active}
		if !c.BothOdds.IsZero() {
			it.BothOdds = c.BothOdds.String()
		}
		out = append(out, it)
	}
	writeJSON(w, out)
}

func (s *Server) createOptionGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CreateOptionGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.TeamA == "" || req.TeamB == "" || !req.ClosingTime.After(req.OpeningTime) {
		http.Error(w, "teams required and closing_time must come after opening_time", http.StatusBadRequest)
		return
	}
	odds, err := decimal.NewFromString(req.Odds)
	if err != nil || !odds.IsPositive() {
		http.Error(w, "odds must be a positive decimal", http.StatusBadRequest)
		return
	}
	g, err := s.repo.CreateOptionGame(r.Context(), req.TeamA, req.TeamB, req.OpeningTime, req.ClosingTime, odds)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toOptionGameResponse(g))
}

func (s *Server) handleOptionGame(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(strings.TrimPrefix(r.URL.Path, "/option-games/"))
	if id == "" {
		http.Error(w, "option game id required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		g, err := s.repo.GetOptionGame(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, toOptionGameResponse(g))
	case action == "result" && r.Method == http.MethodPost:
		s.declare(w, r, settlement.Target{Kind: settlement.TargetOption, ID: id})
	case action == "close" && r.Method == http.MethodPost:
		s.close(w, r, settlement.Target{Kind: settlement.TargetOption, ID: id})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// declare runs the full declare-and-settle pass synchronously and answers
// with the settlement report. The event published afterwards lets the worker
// resume if this process dies mid-pass.
func (s *Server) declare(w http.ResponseWriter, r *http.Request, target settlement.Target) {
	var req dto.DeclareResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	report, err := s.engine.DeclareResult(r.Context(), target, req.ResultValue)
	if err != nil && !errors.Is(err, settlement.ErrAlreadyDeclared) {
		// A partial pass still declared the result; publish so the worker
		// finishes it, then report the failure.
		if report.ResultValue != "" {
			s.publishDeclared(r.Context(), target, report.ResultValue)
		}
		writeError(w, err)
		return
	}
	if errors.Is(err, settlement.ErrAlreadyDeclared) {
		writeError(w, err)
		return
	}

	s.publishDeclared(r.Context(), target, report.ResultValue)
	writeJSON(w, toReportResponse(report))
}

func (s *Server) close(w http.ResponseWriter, r *http.Request, target settlement.Target) {
	if err := s.repo.Close(r.Context(), target); err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("target closed by operator", zap.String("target", target.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publishDeclared(ctx context.Context, target settlement.Target, resultValue string) {
	err := s.publ.PublishResultDeclared(ctx, events.ResultDeclared{
		TargetKind:  string(target.Kind),
		TargetID:    target.ID,
		ResultValue: resultValue,
		DeclaredAt:  time.Now(),
	})
	if err != nil {
		s.log.Warn("publish result declared", zap.String("target", target.ID), zap.Error(err))
	}
}

func toMarketResponse(m markets.Market) dto.MarketResponse {
	return dto.MarketResponse{
		ID:           m.ID,
		Name:         m.Name,
		OpeningTime:  m.OpeningTime,
		ClosingTime:  m.ClosingTime,
		Status:       string(m.Status),
		ResultStatus: string(m.ResultStatus),
		ResultValue:  m.ResultValue,
		DeclaredAt:   m.DeclaredAt,
	}
}

func toOptionGameResponse(g markets.OptionGame) dto.OptionGameResponse {
	return dto.OptionGameResponse{
		ID:           g.ID,
		TeamA:        g.TeamA,
		TeamB:        g.TeamB,
		OpeningTime:  g.OpeningTime,
		ClosingTime:  g.ClosingTime,
		Status:       string(g.Status),
		ResultStatus: string(g.ResultStatus),
		WinningTeam:  g.WinningTeam,
		Odds:         g.Odds.String(),
		DeclaredAt:   g.DeclaredAt,
	}
}

func toReportResponse(rep settlement.Report) dto.SettlementReport {
	out := dto.SettlementReport{
		TargetID:    rep.Target.ID,
		ResultValue: rep.ResultValue,
		Won:         rep.Won,
		Lost:        rep.Lost,
		Invalid:     rep.Invalid,
		TotalPaid:   rep.TotalPaid.String(),
	}
	if len(rep.PaidByAccount) > 0 {
		out.PaidByAccount = make(map[string]string, len(rep.PaidByAccount))
		for acct, paid := range rep.PaidByAccount {
			out.PaidByAccount[acct] = paid.String()
		}
	}
	return out
}

func splitPath(rest string) (id, action string) {
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rules.ErrInvalidResult),
		errors.Is(err, rules.ErrUnknownGameType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, markets.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, settlement.ErrNotClosed),
		errors.Is(err, settlement.ErrAlreadyDeclared),
		errors.Is(err, settlement.ErrNotDeclared):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
