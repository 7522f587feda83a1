package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/bets"
	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/ledger/emitter"
	mcache "github.com/matkabet/numbers-bet-platform/internal/market-service/cache"
	mhttp "github.com/matkabet/numbers-bet-platform/internal/market-service/http"
	"github.com/matkabet/numbers-bet-platform/internal/market-service/producer"
	"github.com/matkabet/numbers-bet-platform/internal/market-service/scheduler"
	"github.com/matkabet/numbers-bet-platform/internal/markets"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
	sproducer "github.com/matkabet/numbers-bet-platform/internal/settlement/producer"
	"github.com/matkabet/numbers-bet-platform/internal/shared/cache"
	"github.com/matkabet/numbers-bet-platform/internal/shared/config"
	"github.com/matkabet/numbers-bet-platform/internal/shared/db"
	"github.com/matkabet/numbers-bet-platform/internal/shared/kafka"
	"github.com/matkabet/numbers-bet-platform/internal/shared/logger"
	"github.com/matkabet/numbers-bet-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("market-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "market-service"), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if err := db.EnsureSchema(context.Background(), pg); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Warn("redis connect, odds cache mirroring disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	balanceWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBalanceChanged)
	defer balanceWriter.Close()
	statusWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTransactionStatus)
	defer statusWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()
	declaredWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultDeclared)
	defer declaredWriter.Close()

	store := ledger.NewStore(pg, log, emitter.NewKafka(balanceWriter, statusWriter))
	marketRepo := markets.NewPostgres(pg)
	betStore := bets.NewPostgres(pg, store)

	engine := settlement.NewEngine(log, marketRepo, betStore, sproducer.NewKafka(settledWriter))
	api := mhttp.NewServer(log, marketRepo, engine,
		mcache.NewOddsCache(log, rdb, 5*time.Minute),
		producer.NewKafkaPublisher(declaredWriter))

	sched := scheduler.New(log, marketRepo)
	if err := sched.Start(); err != nil {
		log.Fatal("scheduler start", zap.Error(err))
	}
	defer sched.Stop()

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
