package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusProcessing = "PROCESSING"
	StatusProcessed  = "PROCESSED"
	StatusFailed     = "FAILED"
)

// Transaction is the single durable record per webhook-delivered transaction.
// ProcessedAt is set exactly once, on the transition into PROCESSED.
type Transaction struct {
	TransactionID      string
	SourceAccount      string
	DestinationAccount string
	Amount             decimal.Decimal
	Currency           string
	Status             string
	CreatedAt          time.Time
	ProcessedAt        *time.Time
}

// TransactionView is the API snapshot of a Transaction. Amount keeps its
// two-decimal scale as a string to avoid binary-float rounding on the wire.
type TransactionView struct {
	TransactionID      string     `json:"transaction_id"`
	SourceAccount      string     `json:"source_account"`
	DestinationAccount string     `json:"destination_account"`
	Amount             string     `json:"amount"`
	Currency           string     `json:"currency"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	ProcessedAt        *time.Time `json:"processed_at"`
}

func NewTransactionView(t *Transaction) TransactionView {
	return TransactionView{
		TransactionID:      t.TransactionID,
		SourceAccount:      t.SourceAccount,
		DestinationAccount: t.DestinationAccount,
		Amount:             t.Amount.StringFixed(2),
		Currency:           t.Currency,
		Status:             t.Status,
		CreatedAt:          t.CreatedAt,
		ProcessedAt:        t.ProcessedAt,
	}
}
