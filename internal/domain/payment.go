package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a single repayment against a loan. Payments are append-only.
type Payment struct {
	ID        string          `json:"id" db:"id"`
	LoanID    string          `json:"loan_id" db:"loan_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Date      time.Time       `json:"date" db:"date"`
	Revision  int             `json:"revision" db:"revision"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type CreatePaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	// Date defaults to today when empty.
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}
