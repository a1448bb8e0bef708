package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dkotelnikov/txgate/internal/queue"
)

type stubJobsReader struct {
	messages []kafka.Message
	commits  []kafka.Message
}

func (s *stubJobsReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(s.messages) == 0 {
		return kafka.Message{}, context.Canceled
	}

	m := s.messages[0]
	s.messages = s.messages[1:]
	return m, nil
}

func (s *stubJobsReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	s.commits = append(s.commits, msgs...)
	return nil
}

func (s *stubJobsReader) Close() error { return nil }

type stubProcessor struct {
	calls []string
	err   error
}

func (s *stubProcessor) Process(ctx context.Context, transactionID string) error {
	s.calls = append(s.calls, transactionID)
	return s.err
}

func jobMessage(t *testing.T, transactionID string) kafka.Message {
	t.Helper()

	b, err := json.Marshal(queue.Job{TransactionID: transactionID, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("failed to marshal job: %v", err)
	}

	return kafka.Message{Key: []byte(transactionID), Value: b}
}

func newTestConsumer(t *testing.T, reader JobsReader, processor TransactionProcessor) *Consumer {
	t.Helper()

	return &Consumer{lg: newTestLogger(t), reader: reader, processor: processor}
}

func TestConsumerCommitsAfterSuccessfulProcess(t *testing.T) {
	reader := &stubJobsReader{messages: []kafka.Message{jobMessage(t, "txn_1")}}
	processor := &stubProcessor{}
	cns := newTestConsumer(t, reader, processor)

	if err := cns.processMessage(context.Background()); err != nil {
		t.Fatalf("processMessage returned error: %v", err)
	}

	if len(processor.calls) != 1 || processor.calls[0] != "txn_1" {
		t.Fatalf("expected processor call for txn_1, got %v", processor.calls)
	}
	if len(reader.commits) != 1 {
		t.Fatalf("expected offset committed after processing, got %d commits", len(reader.commits))
	}
}

func TestConsumerLeavesOffsetUncommittedOnProcessFailure(t *testing.T) {
	reader := &stubJobsReader{messages: []kafka.Message{jobMessage(t, "txn_1")}}
	processor := &stubProcessor{err: context.DeadlineExceeded}
	cns := newTestConsumer(t, reader, processor)

	if err := cns.processMessage(context.Background()); err == nil {
		t.Fatal("expected an error when processing fails")
	}

	if len(reader.commits) != 0 {
		t.Fatalf("failed job must stay uncommitted for redelivery, got %d commits", len(reader.commits))
	}
}

func TestConsumerCommitsMalformedJob(t *testing.T) {
	reader := &stubJobsReader{messages: []kafka.Message{{Key: []byte("txn_1"), Value: []byte("not a job")}}}
	processor := &stubProcessor{}
	cns := newTestConsumer(t, reader, processor)

	if err := cns.processMessage(context.Background()); err == nil {
		t.Fatal("expected an error for a malformed job")
	}

	if len(processor.calls) != 0 {
		t.Fatalf("malformed job must not reach the processor, got %v", processor.calls)
	}
	if len(reader.commits) != 1 {
		t.Fatalf("malformed job must be committed so it cannot wedge the partition, got %d commits", len(reader.commits))
	}
}
