package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/matkabet/numbers-bet-platform/pkg/contracts/events"
)

// Kafka publishes per-bet settlement outcomes. Satisfies settlement.Emitter.
type Kafka struct {
	Writer *kafka.Writer
}

func NewKafka(w *kafka.Writer) *Kafka { return &Kafka{Writer: w} }

func (p *Kafka) BetSettled(ctx context.Context, e events.BetSettled) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.BetID), Value: b})
}
