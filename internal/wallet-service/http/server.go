package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/wallet-service/dto"
)

// Server exposes the ledger store over HTTP: accounts, deposit/withdrawal
// requests, the approval workflow and the audit endpoints. Role checks
// (only admins settle) happen upstream at the gateway/API layer.
type Server struct {
	log   *zap.Logger
	store *ledger.Store
}

func NewServer(log *zap.Logger, store *ledger.Store) *Server {
	return &Server{log: log, store: store}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallet", s.getWallet)                  // GET ?userId=
	mux.HandleFunc("/wallet/balance", s.getBalance)         // GET ?accountId=
	mux.HandleFunc("/wallet/transactions", s.transactions)  // POST create, GET ?accountId=
	mux.HandleFunc("/wallet/transactions/settle", s.settle) // POST
	mux.HandleFunc("/wallet/reconcile", s.reconcile)        // GET ?accountId=
	return mux
}

// getWallet returns (creating on first use) the account for a user.
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	a, err := s.store.GetOrCreateAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.AccountResponse{AccountID: a.ID, UserID: a.UserID, Balance: a.Balance.String()})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		http.Error(w, "accountId required", http.StatusBadRequest)
		return
	}
	bal, err := s.store.Balance(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.AccountResponse{AccountID: accountID, Balance: bal.String()})
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodGet:
		s.listTransactions(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// createTransaction records a deposit or withdrawal request. The balance is
// untouched until an approver settles it.
func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" {
		http.Error(w, "account_id required", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	var kind ledger.Kind
	switch strings.ToUpper(req.Kind) {
	case string(ledger.KindDeposit):
		kind = ledger.KindDeposit
	case string(ledger.KindWithdrawal):
		kind = ledger.KindWithdrawal
	default:
		http.Error(w, "kind must be DEPOSIT or WITHDRAWAL", http.StatusBadRequest)
		return
	}

	txn, err := s.store.CreatePending(r.Context(), req.AccountID, kind, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toTransaction(txn))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		http.Error(w, "accountId required", http.StatusBadRequest)
		return
	}
	list, err := s.store.Entries(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.TransactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransaction(t))
	}
	writeJSON(w, out)
}

// settle approves or rejects a pending request. Duplicate settles come back
// as 409 ALREADY_SETTLED, which is what a retried approval click sees.
func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.SettleTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.TxID == "" {
		http.Error(w, "tx_id required", http.StatusBadRequest)
		return
	}

	var approve bool
	switch strings.ToLower(req.Outcome) {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		http.Error(w, "outcome must be approve or reject", http.StatusBadRequest)
		return
	}

	txn, err := s.store.Settle(r.Context(), req.TxID, approve)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, toTransaction(txn))
}

// reconcile replays the account's ledger against its cached balance.
func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		http.Error(w, "accountId required", http.StatusBadRequest)
		return
	}
	res, err := s.store.Reconcile(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !res.Consistent {
		s.log.Error("ledger replay mismatch",
			zap.String("accountId", res.AccountID),
			zap.String("balance", res.Balance.String()),
			zap.String("replayed", res.Replayed.String()))
	}
	writeJSON(w, dto.ReconcileResponse{
		AccountID:  res.AccountID,
		Balance:    res.Balance.String(),
		Replayed:   res.Replayed.String(),
		Consistent: res.Consistent,
	})
}

func toTransaction(t ledger.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		TxID:      t.ID,
		AccountID: t.AccountID,
		Kind:      string(t.Kind),
		Amount:    t.Amount.String(),
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		SettledAt: t.SettledAt,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrAlreadySettled),
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
