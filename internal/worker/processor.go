package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/models"
)

// Processor advances a single transaction to its terminal status. It tolerates
// redelivery: a record that is already PROCESSED, or that no longer exists, is
// left untouched.
type Processor struct {
	lg           *logging.ZapLogger
	transactions ProcessorTransactionsRepository
	delay        time.Duration
	timeout      time.Duration
}

type ProcessorTransactionsRepository interface {
	Find(ctx context.Context, transactionID string) (*models.Transaction, error)
	MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, transactionID string) (bool, error)
}

func NewProcessor(cfg *Config, transactions ProcessorTransactionsRepository, lg *logging.ZapLogger) *Processor {
	return &Processor{
		lg:           lg,
		transactions: transactions,
		delay:        time.Duration(cfg.SettlementDelay) * time.Millisecond,
		timeout:      time.Duration(cfg.SettlementTimeout) * time.Millisecond,
	}
}

func (p *Processor) Process(ctx context.Context, transactionID string) error {
	ctx = p.lg.WithContextFields(ctx, zap.String("transaction_id", transactionID))
	p.lg.DebugCtx(ctx, "transaction processing started")

	if err := p.settle(ctx); err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a settlement failure: leave the offset uncommitted
			// so the job is redelivered after restart.
			return fmt.Errorf("worker/processor: settlement interrupted error %w", err)
		}

		// The settlement call exceeded its bound. Park the record as FAILED; a
		// webhook redelivery for this id re-enqueues it.
		if _, ferr := p.transactions.MarkFailed(ctx, transactionID); ferr != nil {
			return fmt.Errorf("worker/processor: mark failed error %w", ferr)
		}

		p.lg.ErrorCtx(ctx, "settlement call timed out, transaction marked failed", zap.Error(err))
		return nil
	}

	t, err := p.transactions.Find(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("worker/processor: find transaction error %w", err)
	}

	if t == nil {
		p.lg.WarnCtx(ctx, "transaction record not found, skipping")
		return nil
	}

	if t.Status == models.StatusProcessed {
		p.lg.DebugCtx(ctx, "transaction already processed, skipping")
		return nil
	}

	updated, err := p.transactions.MarkProcessed(ctx, transactionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("worker/processor: mark processed error %w", err)
	}

	if !updated {
		p.lg.DebugCtx(ctx, "transaction reached terminal status concurrently")
		return nil
	}

	p.lg.InfoCtx(ctx, "transaction processed")
	return nil
}

// settle simulates the external settlement/verification call: a latency wait
// bounded by both the settlement timeout and ctx, never a bare sleep.
func (p *Processor) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
