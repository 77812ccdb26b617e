package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleEntry is one daily installment of the fixed 10-day repayment plan.
type ScheduleEntry struct {
	Day        int             `json:"day"`
	DueDate    time.Time       `json:"due_date"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	IsPaid     bool            `json:"is_paid"`
}

type ScheduleResponse struct {
	LoanID   string          `json:"loan_id"`
	Schedule []ScheduleEntry `json:"schedule"`
}
