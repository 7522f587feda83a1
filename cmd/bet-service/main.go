package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	bhttp "github.com/matkabet/numbers-bet-platform/internal/bet-service/http"
	"github.com/matkabet/numbers-bet-platform/internal/bet-service/odds"
	"github.com/matkabet/numbers-bet-platform/internal/bet-service/producer"
	"github.com/matkabet/numbers-bet-platform/internal/bet-service/registry"
	"github.com/matkabet/numbers-bet-platform/internal/bets"
	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/ledger/emitter"
	"github.com/matkabet/numbers-bet-platform/internal/markets"
	"github.com/matkabet/numbers-bet-platform/internal/shared/cache"
	"github.com/matkabet/numbers-bet-platform/internal/shared/config"
	"github.com/matkabet/numbers-bet-platform/internal/shared/db"
	"github.com/matkabet/numbers-bet-platform/internal/shared/kafka"
	"github.com/matkabet/numbers-bet-platform/internal/shared/logger"
	"github.com/matkabet/numbers-bet-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("bet-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "bet-service"), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if err := db.EnsureSchema(context.Background(), pg); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	// Redis is optional: with no connection the odds source reads straight
	// from Postgres.
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Warn("redis connect, falling back to db odds reads", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	balanceWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBalanceChanged)
	defer balanceWriter.Close()
	statusWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTransactionStatus)
	defer statusWriter.Close()
	placedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedWriter.Close()

	store := ledger.NewStore(pg, log, emitter.NewKafka(balanceWriter, statusWriter))
	marketRepo := markets.NewPostgres(pg)
	betStore := bets.NewPostgres(pg, store)

	reg := registry.New(marketRepo, odds.NewSource(rdb, marketRepo, 5*time.Minute), betStore)
	api := bhttp.NewServer(log, reg, betStore, producer.NewKafkaPublisher(placedWriter, cfg.TopicBetPlaced))

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
