package emitter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/matkabet/numbers-bet-platform/pkg/contracts/events"
)

// Kafka publishes ledger events. Satisfies ledger.Emitter.
type Kafka struct {
	balance *kafka.Writer
	status  *kafka.Writer
}

func NewKafka(balanceWriter, statusWriter *kafka.Writer) *Kafka {
	return &Kafka{balance: balanceWriter, status: statusWriter}
}

func (k *Kafka) BalanceChanged(ctx context.Context, e events.BalanceChanged) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return k.balance.WriteMessages(ctx, kafka.Message{Key: []byte(e.AccountID), Value: b})
}

func (k *Kafka) TransactionStatus(ctx context.Context, e events.TransactionStatus) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return k.status.WriteMessages(ctx, kafka.Message{Key: []byte(e.AccountID), Value: b})
}
