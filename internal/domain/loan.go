package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusPaid      = "paid"
	LoanStatusDefaulted = "defaulted"
)

// Loan represents a credit line disbursed to a member.
// Status is a stored hint; the authoritative value is derived from payments.
type Loan struct {
	ID            string          `json:"id" db:"id"`
	MemberID      string          `json:"member_id" db:"member_id"`
	MemberName    string          `json:"member_name" db:"member_name"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	IssuedDate    time.Time       `json:"issued_date" db:"issued_date"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	TotalInterest decimal.Decimal `json:"total_interest" db:"total_interest"`
	Status        string          `json:"status" db:"status"`
	Revision      int             `json:"revision" db:"revision"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	MemberID      string          `json:"member_id" validate:"required"`
	MemberName    string          `json:"member_name" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	DueDate       string          `json:"due_date" validate:"required,datetime=2006-01-02"`
	TotalInterest decimal.Decimal `json:"total_interest" validate:"decimal_gte=0"`
}

type CreateLoanResponse struct {
	Loan     *Loan           `json:"loan"`
	Schedule []ScheduleEntry `json:"schedule"`
}

// LoanSummary is a loan together with everything derived from its payments.
type LoanSummary struct {
	Loan          *Loan           `json:"loan"`
	Status        PaymentStatus   `json:"payment_status"`
	DerivedStatus string          `json:"derived_status"`
	Schedule      []ScheduleEntry `json:"schedule,omitempty"`
	Payments      []*Payment      `json:"payments,omitempty"`
}

type Defaulter struct {
	Loan      *Loan           `json:"loan"`
	DaysLate  int             `json:"days_late"`
	Remaining decimal.Decimal `json:"remaining"`
	Penalty   decimal.Decimal `json:"penalty"`
}

type DashboardStats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Paid      int `json:"paid"`
	Defaulted int `json:"defaulted"`
}

type ReconcileResponse struct {
	Updated int `json:"updated"`
}
