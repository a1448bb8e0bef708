package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxAmountDigits   = 18
	maxAmountScale    = 2
	maxCurrencyLength = 10
)

var (
	ErrAmountScale    = errors.New("models/webhook_payload: amount scale exceeds 2 decimal places")
	ErrAmountDigits   = errors.New("models/webhook_payload: amount exceeds 18 digits")
	ErrCurrencyLength = errors.New("models/webhook_payload: currency exceeds 10 characters")
)

// WebhookPayload is the inbound webhook body. Amount is accepted both as a
// JSON number and as a quoted decimal string; it is a pointer so a missing
// field is rejected instead of defaulting to zero.
type WebhookPayload struct {
	TransactionID      string           `json:"transaction_id" binding:"required"`
	SourceAccount      string           `json:"source_account" binding:"required"`
	DestinationAccount string           `json:"destination_account" binding:"required"`
	Amount             *decimal.Decimal `json:"amount" binding:"required"`
	Currency           string           `json:"currency" binding:"required"`
}

func (p *WebhookPayload) Validate() error {
	if p.Amount.Exponent() < -maxAmountScale {
		return ErrAmountScale
	}

	if amountDigits(*p.Amount) > maxAmountDigits {
		return ErrAmountDigits
	}

	if len(p.Currency) > maxCurrencyLength {
		return ErrCurrencyLength
	}

	return nil
}

// Transaction builds the initial PROCESSING record from the payload.
func (p *WebhookPayload) Transaction() *Transaction {
	return &Transaction{
		TransactionID:      p.TransactionID,
		SourceAccount:      p.SourceAccount,
		DestinationAccount: p.DestinationAccount,
		Amount:             *p.Amount,
		Currency:           p.Currency,
		Status:             StatusProcessing,
		CreatedAt:          time.Now().UTC(),
	}
}

func amountDigits(d decimal.Decimal) int {
	digits := 0
	for _, r := range d.Abs().String() {
		if r != '.' {
			digits++
		}
	}

	return digits
}
