package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/shared/config"
	"github.com/matkabet/numbers-bet-platform/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func main() {
	cfg := config.Load()
	log, _ := logger.New("api-gateway", cfg.Env)
	defer log.Sync()

	wallet := rp(cfg.WalletURL)
	bet := rp(cfg.BetURL)
	market := rp(cfg.MarketURL)

	mux := http.NewServeMux()

	// /api/wallet/* -> wallet-service
	mux.Handle("/api/wallet/", http.StripPrefix("/api", wallet))

	// /api/bets/* -> bet-service
	mux.Handle("/api/bets", http.StripPrefix("/api", bet)) // exact path, POST place
	mux.Handle("/api/bets/", http.StripPrefix("/api", bet))

	// /api/markets/* and /api/option-games/* -> market-service
	mux.Handle("/api/markets", http.StripPrefix("/api", market))
	mux.Handle("/api/markets/", http.StripPrefix("/api", market))
	mux.Handle("/api/option-games", http.StripPrefix("/api", market))
	mux.Handle("/api/option-games/", http.StripPrefix("/api", market))

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
