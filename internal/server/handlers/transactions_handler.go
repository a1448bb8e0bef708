package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/models"
)

// TransactionsHandler serves status lookups. An unknown id yields an empty
// array, never an error.
type TransactionsHandler struct {
	lg           *logging.ZapLogger
	transactions StatusTransactionsRepository
}

type StatusTransactionsRepository interface {
	Find(ctx context.Context, transactionID string) (*models.Transaction, error)
}

func NewTransactionsHandler(transactions StatusTransactionsRepository, lg *logging.ZapLogger) *TransactionsHandler {
	return &TransactionsHandler{lg: lg, transactions: transactions}
}

func (h *TransactionsHandler) Handle(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	ctx := c.Request.Context()

	t, err := h.transactions.Find(ctx, transactionID)
	if err != nil {
		h.lg.ErrorCtx(ctx, "transactions_handler: find transaction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if t == nil {
		c.JSON(http.StatusOK, []models.TransactionView{})
		return
	}

	c.JSON(http.StatusOK, []models.TransactionView{models.NewTransactionView(t)})
}
