package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/ledger/emitter"
	"github.com/matkabet/numbers-bet-platform/internal/shared/config"
	"github.com/matkabet/numbers-bet-platform/internal/shared/db"
	"github.com/matkabet/numbers-bet-platform/internal/shared/kafka"
	"github.com/matkabet/numbers-bet-platform/internal/shared/logger"
	"github.com/matkabet/numbers-bet-platform/internal/shared/metrics"
	whttp "github.com/matkabet/numbers-bet-platform/internal/wallet-service/http"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("wallet-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "wallet-service"), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if err := db.EnsureSchema(context.Background(), pg); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	balanceWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBalanceChanged)
	defer balanceWriter.Close()
	statusWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTransactionStatus)
	defer statusWriter.Close()

	store := ledger.NewStore(pg, log, emitter.NewKafka(balanceWriter, statusWriter))
	api := whttp.NewServer(log, store)

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	defer metricsSrv.Close()
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
