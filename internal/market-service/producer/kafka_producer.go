package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/matkabet/numbers-bet-platform/pkg/contracts/events"
)

type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

// PublishResultDeclared is keyed by target id so all settlement triggers for
// one target land on the same partition, in order.
func (p *KafkaPublisher) PublishResultDeclared(ctx context.Context, e events.ResultDeclared) error {
	b, _ := json.Marshal(e)
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.TargetID), Value: b})
}
