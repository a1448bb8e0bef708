package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/dkotelnikov/txgate/internal/config"
	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/models"
)

func newTestLogger(t *testing.T) *logging.ZapLogger {
	t.Helper()

	lg, err := logging.NewZapLogger(&config.Config{LogLevel: int(zapcore.ErrorLevel)})
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}

	return lg
}

type stubProcessorRepository struct {
	record         *models.Transaction
	processedCalls int
	failedCalls    int
}

func (s *stubProcessorRepository) Find(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if s.record == nil || s.record.TransactionID != transactionID {
		return nil, nil
	}

	return s.record, nil
}

func (s *stubProcessorRepository) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) (bool, error) {
	s.processedCalls++

	if s.record == nil || s.record.Status == models.StatusProcessed {
		return false, nil
	}

	s.record.Status = models.StatusProcessed
	s.record.ProcessedAt = &processedAt
	return true, nil
}

func (s *stubProcessorRepository) MarkFailed(ctx context.Context, transactionID string) (bool, error) {
	s.failedCalls++

	if s.record == nil || s.record.Status != models.StatusProcessing {
		return false, nil
	}

	s.record.Status = models.StatusFailed
	return true, nil
}

func newTestProcessor(t *testing.T, repo ProcessorTransactionsRepository, delayMS, timeoutMS int) *Processor {
	t.Helper()

	cfg := &Config{SettlementDelay: delayMS, SettlementTimeout: timeoutMS}

	return NewProcessor(cfg, repo, newTestLogger(t))
}

func TestProcessorMarksProcessed(t *testing.T) {
	repo := &stubProcessorRepository{
		record: &models.Transaction{TransactionID: "txn_1", Status: models.StatusProcessing},
	}
	p := newTestProcessor(t, repo, 1, 1000)

	if err := p.Process(context.Background(), "txn_1"); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if repo.record.Status != models.StatusProcessed {
		t.Fatalf("expected status %s, got %s", models.StatusProcessed, repo.record.Status)
	}
	if repo.record.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}
	if repo.processedCalls != 1 {
		t.Fatalf("expected one MarkProcessed call, got %d", repo.processedCalls)
	}
}

func TestProcessorIdempotentOnRedelivery(t *testing.T) {
	repo := &stubProcessorRepository{
		record: &models.Transaction{TransactionID: "txn_1", Status: models.StatusProcessing},
	}
	p := newTestProcessor(t, repo, 1, 1000)

	if err := p.Process(context.Background(), "txn_1"); err != nil {
		t.Fatalf("first Process returned error: %v", err)
	}

	firstProcessedAt := *repo.record.ProcessedAt

	if err := p.Process(context.Background(), "txn_1"); err != nil {
		t.Fatalf("second Process returned error: %v", err)
	}

	if repo.processedCalls != 1 {
		t.Fatalf("redelivery must not update again, got %d MarkProcessed calls", repo.processedCalls)
	}
	if !repo.record.ProcessedAt.Equal(firstProcessedAt) {
		t.Fatal("processed_at must not be overwritten on redelivery")
	}
}

func TestProcessorRetriesFailedTransaction(t *testing.T) {
	repo := &stubProcessorRepository{
		record: &models.Transaction{TransactionID: "txn_1", Status: models.StatusFailed},
	}
	p := newTestProcessor(t, repo, 1, 1000)

	if err := p.Process(context.Background(), "txn_1"); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if repo.record.Status != models.StatusProcessed {
		t.Fatalf("re-enqueued failed transaction must reach %s, got %s", models.StatusProcessed, repo.record.Status)
	}
	if repo.record.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set on retry success")
	}
}

func TestProcessorMissingRecord(t *testing.T) {
	repo := &stubProcessorRepository{}
	p := newTestProcessor(t, repo, 1, 1000)

	if err := p.Process(context.Background(), "txn_missing"); err != nil {
		t.Fatalf("Process returned error for missing record: %v", err)
	}

	if repo.processedCalls != 0 || repo.failedCalls != 0 {
		t.Fatal("missing record must be a no-op")
	}
}

func TestProcessorSettlementTimeoutMarksFailed(t *testing.T) {
	repo := &stubProcessorRepository{
		record: &models.Transaction{TransactionID: "txn_1", Status: models.StatusProcessing},
	}
	p := newTestProcessor(t, repo, 500, 1)

	if err := p.Process(context.Background(), "txn_1"); err != nil {
		t.Fatalf("Process returned error on settlement timeout: %v", err)
	}

	if repo.record.Status != models.StatusFailed {
		t.Fatalf("expected status %s after timeout, got %s", models.StatusFailed, repo.record.Status)
	}
	if repo.processedCalls != 0 {
		t.Fatal("timed-out settlement must not mark the record processed")
	}
}

func TestProcessorShutdownLeavesRecordUntouched(t *testing.T) {
	repo := &stubProcessorRepository{
		record: &models.Transaction{TransactionID: "txn_1", Status: models.StatusProcessing},
	}
	p := newTestProcessor(t, repo, 500, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Process(ctx, "txn_1"); err == nil {
		t.Fatal("expected an error when processing is interrupted by shutdown")
	}

	if repo.record.Status != models.StatusProcessing {
		t.Fatalf("shutdown must leave the record for redelivery, got status %s", repo.record.Status)
	}
	if repo.failedCalls != 0 {
		t.Fatal("shutdown must not mark the record failed")
	}
}
