package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/models"
	"github.com/dkotelnikov/txgate/internal/storage"
)

// TransactionsRepository owns every read and write against the transactions
// table. Each call is a single keyed statement with its own transaction
// boundary; no cross-row transactions are needed.
type TransactionsRepository struct {
	strg TransactionsStorage
	lg   *logging.ZapLogger
}

type TransactionsStorage interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

func NewTransactionsRepository(strg *storage.Storage, lg *logging.ZapLogger) *TransactionsRepository {
	return &TransactionsRepository{strg: strg.DB, lg: lg}
}

// CreateIfAbsent inserts the record unless one already exists for its
// transaction id. The primary-key conflict resolves the concurrent
// first-submission race: the loser sees created == false instead of an error.
func (rep *TransactionsRepository) CreateIfAbsent(ctx context.Context, in *models.Transaction) (bool, error) {
	tag, err := rep.strg.Exec(
		ctx,
		`
			INSERT INTO transactions(transaction_id, source_account, destination_account, amount, currency, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (transaction_id) DO NOTHING
		`,
		in.TransactionID, in.SourceAccount, in.DestinationAccount, in.Amount, in.Currency, in.Status, in.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("transactions_repository: create transaction record error %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Find returns (nil, nil) when no record exists: absence is a valid outcome,
// not an error.
func (rep *TransactionsRepository) Find(ctx context.Context, transactionID string) (*models.Transaction, error) {
	row := rep.strg.QueryRow(
		ctx,
		`
			SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at
			FROM transactions
			WHERE transaction_id = $1
		`,
		transactionID,
	)

	t := models.Transaction{}
	if err := row.Scan(
		&t.TransactionID,
		&t.SourceAccount,
		&t.DestinationAccount,
		&t.Amount,
		&t.Currency,
		&t.Status,
		&t.CreatedAt,
		&t.ProcessedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("transactions_repository: scan transaction error %w", err)
	}

	return &t, nil
}

// MarkProcessed performs the terminal transition. The status guard makes the
// update idempotent under at-least-once job redelivery: processed_at is never
// overwritten once set.
func (rep *TransactionsRepository) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) (bool, error) {
	tag, err := rep.strg.Exec(
		ctx,
		`
			UPDATE transactions
			SET status = $2, processed_at = $3
			WHERE transaction_id = $1 AND status <> $2
		`,
		transactionID, models.StatusProcessed, processedAt,
	)
	if err != nil {
		return false, fmt.Errorf("transactions_repository: mark processed error %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkFailed parks a still-PROCESSING record as FAILED. Records that already
// reached a terminal status are left untouched.
func (rep *TransactionsRepository) MarkFailed(ctx context.Context, transactionID string) (bool, error) {
	tag, err := rep.strg.Exec(
		ctx,
		`
			UPDATE transactions
			SET status = $2
			WHERE transaction_id = $1 AND status = $3
		`,
		transactionID, models.StatusFailed, models.StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("transactions_repository: mark failed error %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
