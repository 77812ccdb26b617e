package domain

import "github.com/shopspring/decimal"

// PaymentStatus is derived from a loan and its payments on every read.
type PaymentStatus struct {
	TotalPaid decimal.Decimal `json:"total_paid"`
	TotalDue  decimal.Decimal `json:"total_due"`
	Remaining decimal.Decimal `json:"remaining"`
	IsPaid    bool            `json:"is_paid"`
	IsOverdue bool            `json:"is_overdue"`
}
