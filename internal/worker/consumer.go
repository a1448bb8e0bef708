package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dkotelnikov/txgate/internal/config"
	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/queue"
)

// Consumer pulls processing jobs from the transactions topic and hands them to
// the processor. Offsets are committed only after the processor returns, which
// gives at-least-once execution; the processor is idempotent against the
// resulting redeliveries. WorkersCount goroutines share the reader so one
// settlement delay does not stall the whole partition set.
type Consumer struct {
	lg           *logging.ZapLogger
	reader       JobsReader
	processor    TransactionProcessor
	workersCount int64
	cancaller    context.CancelFunc
	globalCtx    context.Context
}

type TransactionProcessor interface {
	Process(ctx context.Context, transactionID string) error
}

type JobsReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewConsumer(
	lc fx.Lifecycle,
	lg *logging.ZapLogger,
	cfg *Config,
	globalCFG *config.Config,
	errLogger *logging.KafkaErrorLogger,
	logger *logging.KafkaLogger,
	processor TransactionProcessor,
) *Consumer {
	lg.DebugCtx(context.Background(), "start transactions processing consumer", zap.String("consumer_group", cfg.KafkaTransactionsGroupID), zap.Any("config", cfg))

	r := kafka.NewReader(kafka.ReaderConfig{
		GroupID:                cfg.KafkaTransactionsGroupID,
		PartitionWatchInterval: time.Duration(cfg.KafkaPartitionWatchInterval) * time.Millisecond,
		Brokers:                globalCFG.KafkaBrokers,
		Topic:                  globalCFG.KafkaTransactionsTopic,
		MinBytes:               10e2, // 1KB
		MaxBytes:               10e6, // 10MB
		ErrorLogger:            errLogger,
		MaxWait:                time.Duration(cfg.KafkaMaxWaitInterval) * time.Millisecond,
		Logger:                 logger,
	})

	cns := &Consumer{
		lg:           lg,
		reader:       r,
		processor:    processor,
		workersCount: cfg.WorkersCount,
	}

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				cns.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				cns.cancaller()
				return cns.reader.Close()
			},
		},
	)

	return cns
}

func (cns *Consumer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	cns.cancaller = cancel
	cns.globalCtx = cns.lg.WithContextFields(ctx, zap.String("name", "transactions_processing_consumer"))

	for i := 0; i < int(cns.workersCount); i++ {
		wctx := cns.lg.WithContextFields(cns.globalCtx, zap.Int("worker_id", i))
		go cns.consume(wctx)
	}
}

func (cns *Consumer) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			cns.lg.DebugCtx(ctx, "consumer worker graceful shutdown")
			return
		default:
			if err := cns.processMessage(ctx); err != nil {
				cns.lg.ErrorCtx(ctx, "worker/consumer: process message error", zap.Error(err))
			}
		}
	}
}

func (cns *Consumer) processMessage(ctx context.Context) error {
	m, err := cns.reader.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("worker/consumer: fetch message error %w", err)
	}

	job := queue.Job{}
	if err := json.Unmarshal(m.Value, &job); err != nil {
		// A malformed job can never succeed; commit it so it does not wedge
		// the partition.
		if cerr := cns.reader.CommitMessages(ctx, m); cerr != nil {
			return fmt.Errorf("worker/consumer: commit malformed message error %w", cerr)
		}

		return fmt.Errorf("worker/consumer: unmarshal job error %w", err)
	}

	cns.lg.InfoCtx(ctx, "consumed processing job", zap.String("transaction_id", job.TransactionID))

	if err := cns.processor.Process(ctx, job.TransactionID); err != nil {
		// Offset stays uncommitted, the job is redelivered.
		return fmt.Errorf("worker/consumer: process job error %w", err)
	}

	if err := cns.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("worker/consumer: failed to commit messages %w", err)
	}

	return nil
}
