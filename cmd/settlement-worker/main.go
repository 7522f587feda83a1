package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/matkabet/numbers-bet-platform/internal/bets"
	"github.com/matkabet/numbers-bet-platform/internal/ledger"
	"github.com/matkabet/numbers-bet-platform/internal/ledger/emitter"
	"github.com/matkabet/numbers-bet-platform/internal/markets"
	"github.com/matkabet/numbers-bet-platform/internal/settlement"
	sproducer "github.com/matkabet/numbers-bet-platform/internal/settlement/producer"
	"github.com/matkabet/numbers-bet-platform/internal/shared/config"
	"github.com/matkabet/numbers-bet-platform/internal/shared/db"
	"github.com/matkabet/numbers-bet-platform/internal/shared/kafka"
	"github.com/matkabet/numbers-bet-platform/internal/shared/logger"
	"github.com/matkabet/numbers-bet-platform/internal/shared/metrics"
	ev "github.com/matkabet/numbers-bet-platform/pkg/contracts/events"
)

// The worker is the crash-recovery half of settlement: market-service settles
// synchronously on declare, and every declare also lands here as an event.
// Resume re-walks the pending bets for the target, so a declare that died
// halfway is finished, and a declare that completed is a no-op.
func main() {
	cfg := config.Load()

	log, err := logger.New("settlement-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if err := db.EnsureSchema(context.Background(), pg); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicResultDeclared, "settlement-worker")
	defer reader.Close()

	balanceWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBalanceChanged)
	defer balanceWriter.Close()
	statusWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicTransactionStatus)
	defer statusWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicResultDeclaredDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultDeclaredDLQ)
		defer dlqWriter.Close()
	}

	store := ledger.NewStore(pg, log, emitter.NewKafka(balanceWriter, statusWriter))
	engine := settlement.NewEngine(log, markets.NewPostgres(pg), bets.NewPostgres(pg, store), sproducer.NewKafka(settledWriter))

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext)
	defer metricsSrv.Close()
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	log.Info("settlement-worker started", zap.String("consume", cfg.TopicResultDeclared))

	ctx := context.Background()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var declared ev.ResultDeclared
		if jerr := json.Unmarshal(msg.Value, &declared); jerr != nil {
			log.Error("unmarshal result_declared", zap.Error(jerr))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(msg.Key), msg.Value)
			}
			continue
		}

		if err := resumeOne(ctx, log, engine, declared); err != nil {
			log.Error("resume settlement", zap.String("targetId", declared.TargetID), zap.Error(err))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, declared.TargetID, msg.Value)
			}
		}
	}
}

// resumeOne retries transient failures with a bounded backoff before giving
// the message to the DLQ. Each attempt starts over from the remaining
// pending bets, so retries never double-pay.
func resumeOne(ctx context.Context, log *zap.Logger, engine *settlement.Engine, declared ev.ResultDeclared) error {
	target := settlement.Target{
		Kind: settlement.TargetKind(declared.TargetKind),
		ID:   declared.TargetID,
	}

	const retries = 3
	var err error
	for i := 0; i <= retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(300*i) * time.Millisecond)
		}

		var rep settlement.Report
		rep, err = engine.Resume(ctx, target)
		if err == nil {
			if rep.Won+rep.Lost > 0 {
				log.Info("settlement resumed",
					zap.String("targetId", target.ID),
					zap.Int("won", rep.Won),
					zap.Int("lost", rep.Lost),
					zap.String("totalPaid", rep.TotalPaid.String()))
			}
			return nil
		}
		if errors.Is(err, settlement.ErrNotDeclared) || errors.Is(err, markets.ErrNotFound) {
			// Nothing to resume; do not retry or dead-letter noise.
			log.Warn("resume skipped", zap.String("targetId", target.ID), zap.Error(err))
			return nil
		}
	}
	return err
}
