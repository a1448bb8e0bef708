package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/dkotelnikov/txgate/internal/config"
	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/models"
)

const (
	MessageAccepted        = "Transaction accepted for processing"
	MessageAlreadyReceived = "Transaction already received"
)

// WebhooksHandler ingests transaction webhooks. Ingestion is idempotent: any
// number of deliveries of the same transaction id leaves exactly one record
// and at most one live processing job for a never-failed transaction.
type WebhooksHandler struct {
	lg            *logging.ZapLogger
	transactions  WebhooksTransactionsRepository
	jobs          JobsPublisher
	retryAttempts uint64
	retryBackoff  time.Duration
}

type WebhooksTransactionsRepository interface {
	CreateIfAbsent(ctx context.Context, in *models.Transaction) (bool, error)
	Find(ctx context.Context, transactionID string) (*models.Transaction, error)
}

type JobsPublisher interface {
	Enqueue(ctx context.Context, transactionID string) error
}

func NewWebhooksHandler(
	cfg *config.Config,
	transactions WebhooksTransactionsRepository,
	jobs JobsPublisher,
	lg *logging.ZapLogger,
) *WebhooksHandler {
	return &WebhooksHandler{
		lg:            lg,
		transactions:  transactions,
		jobs:          jobs,
		retryAttempts: cfg.StoreRetryAttempts,
		retryBackoff:  time.Duration(cfg.StoreRetryBackoff) * time.Millisecond,
	}
}

func (h *WebhooksHandler) Handle(c *gin.Context) {
	payload := models.WebhookPayload{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := payload.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := h.lg.WithContextFields(c.Request.Context(), zap.String("transaction_id", payload.TransactionID))

	existing, err := h.findWithRetry(ctx, payload.TransactionID)
	if err != nil {
		h.lg.ErrorCtx(ctx, "webhooks_handler: lookup transaction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if existing != nil {
		// FAILED transactions get another chance on redelivery; in-flight and
		// completed ones must not produce a duplicate job.
		if existing.Status == models.StatusFailed {
			if err := h.jobs.Enqueue(ctx, existing.TransactionID); err != nil {
				h.lg.ErrorCtx(ctx, "webhooks_handler: re-enqueue failed transaction error", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}

			h.lg.InfoCtx(ctx, "failed transaction re-enqueued")
		}

		c.JSON(http.StatusAccepted, gin.H{"message": MessageAlreadyReceived})
		return
	}

	created, err := h.createWithRetry(ctx, payload.Transaction())
	if err != nil {
		h.lg.ErrorCtx(ctx, "webhooks_handler: create transaction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if !created {
		// Lost the insert race to a concurrent duplicate delivery.
		c.JSON(http.StatusAccepted, gin.H{"message": MessageAlreadyReceived})
		return
	}

	if err := h.jobs.Enqueue(ctx, payload.TransactionID); err != nil {
		// The record exists but no job does; a redelivery of a FAILED record
		// would recover it, a PROCESSING one needs the caller to retry.
		h.lg.ErrorCtx(ctx, "webhooks_handler: enqueue transaction error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.lg.InfoCtx(ctx, "transaction accepted")
	c.JSON(http.StatusAccepted, gin.H{"message": MessageAccepted})
}

func (h *WebhooksHandler) findWithRetry(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var found *models.Transaction

	err := retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		t, err := h.transactions.Find(ctx, transactionID)
		if err != nil {
			return retry.RetryableError(err)
		}

		found = t
		return nil
	})

	return found, err
}

func (h *WebhooksHandler) createWithRetry(ctx context.Context, in *models.Transaction) (bool, error) {
	var created bool

	err := retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		ok, err := h.transactions.CreateIfAbsent(ctx, in)
		if err != nil {
			return retry.RetryableError(err)
		}

		created = ok
		return nil
	})

	return created, err
}

func (h *WebhooksHandler) backoff() retry.Backoff {
	return retry.WithMaxRetries(h.retryAttempts, retry.NewConstant(h.retryBackoff))
}
