package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkotelnikov/txgate/internal/config"
	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Job is the message handed to the worker; it carries only the transaction id
// so the worker always operates on the current persisted record.
type Job struct {
	TransactionID string    `json:"transaction_id"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Publisher enqueues processing jobs onto the transactions topic. Messages are
// keyed by transaction id, which keeps redeliveries of the same id on one
// partition.
type Publisher struct {
	writer *kafka.Writer
	lg     *logging.ZapLogger
}

func NewPublisher(
	lc fx.Lifecycle,
	cfg *config.Config,
	lg *logging.ZapLogger,
	logger *logging.KafkaLogger,
	errLogger *logging.KafkaErrorLogger,
) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTransactionsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		Logger:       logger,
		ErrorLogger:  errLogger,
	}

	lc.Append(
		fx.Hook{
			OnStop: func(ctx context.Context) error {
				return w.Close()
			},
		},
	)

	return &Publisher{writer: w, lg: lg}
}

func (p *Publisher) Enqueue(ctx context.Context, transactionID string) error {
	b, err := json.Marshal(Job{TransactionID: transactionID, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("queue/publisher: marshal job error %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(transactionID), Value: b}); err != nil {
		return fmt.Errorf("queue/publisher: enqueue job error %w", err)
	}

	p.lg.DebugCtx(ctx, "processing job enqueued", zap.String("transaction_id", transactionID))

	return nil
}
