package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/bet-service/dto"
	"github.com/matkabet/numbers-bet-platform/internal/bet-service/registry"
	"github.com/matkabet/numbers-bet-platform/internal/bets"
	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/markets"
	"github.com/matkabet/numbers-bet-platform/internal/rules"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
	"github.com/matkabet/numbers-bet-platform/pkg/contracts/events"
)

// BetReader serves the read endpoints.
type BetReader interface {
	Get(ctx context.Context, id string) (bets.Bet, error)
	ByAccount(ctx context.Context, accountID string) ([]bets.Bet, error)
}

type Server struct {
	log  *zap.Logger
	reg  *registry.Registry
	bets BetReader
	publ interface {
		PublishBetPlaced(context.Context, events.BetPlaced) error
	}
}

func NewServer(log *zap.Logger, reg *registry.Registry, reader BetReader, p interface {
	PublishBetPlaced(context.Context, events.BetPlaced) error
}) *Server {
	return &Server{log: log, reg: reg, bets: reader, publ: p}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.handleBets) // POST place, GET ?accountId=
	mux.HandleFunc("/bets/", s.getBet)    // GET /bets/{id}
	return mux
}

func (s *Server) handleBets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.placeBet(w, r)
	case http.MethodGet:
		s.listBets(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" || req.TargetID == "" || req.Selection == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	kind := settlement.TargetKind(strings.ToUpper(req.TargetKind))
	if kind != settlement.TargetMarket && kind != settlement.TargetOption {
		http.Error(w, "target_kind must be MARKET or OPTION", http.StatusBadRequest)
		return
	}

	bet, err := s.reg.PlaceBet(r.Context(), registry.PlaceRequest{
		AccountID:  req.AccountID,
		TargetKind: kind,
		TargetID:   req.TargetID,
		GameType:   req.GameType,
		Selection:  req.Selection,
		Amount:     amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
		BetID:            bet.ID,
		AccountID:        bet.AccountID,
		TargetKind:       string(bet.TargetKind),
		TargetID:         bet.TargetID,
		GameType:         string(bet.Game),
		Selection:        bet.Selection,
		Amount:           bet.Amount.String(),
		PotentialWinning: bet.PotentialWinning.String(),
	}); err != nil {
		s.log.Warn("publish bet placed", zap.String("betId", bet.ID), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toResponse(bet))
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		http.Error(w, "accountId required", http.StatusBadRequest)
		return
	}
	list, err := s.bets.ByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toResponse(b))
	}
	writeJSON(w, out)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/bets/")
	if id == "" {
		http.Error(w, "bet id required", http.StatusBadRequest)
		return
	}
	b, err := s.bets.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, toResponse(b))
}

func toResponse(b bets.Bet) dto.BetResponse {
	resp := dto.BetResponse{
		BetID:            b.ID,
		AccountID:        b.AccountID,
		TargetKind:       string(b.TargetKind),
		TargetID:         b.TargetID,
		Selection:        b.Selection,
		Amount:           b.Amount.String(),
		PotentialWinning: b.PotentialWinning.String(),
		Status:           string(b.Status),
		CreatedAt:        b.CreatedAt,
		SettledAt:        b.SettledAt,
	}
	if b.Game != rules.Option {
		resp.GameType = string(b.Game)
	}
	return resp
}

// writeError maps domain sentinels onto HTTP statuses; the client-facing
// message stays the sentinel text.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, rules.ErrInvalidSelection),
		errors.Is(err, rules.ErrUnknownGameType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, bets.ErrNotFound),
		errors.Is(err, markets.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrMarketClosed),
		errors.Is(err, registry.ErrGameNotOffered),
		errors.Is(err, ledger.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
