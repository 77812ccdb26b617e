package repository

import (
	"context"
	"errors"

	"github.com/segyhp/sacco-loans/internal/domain"
)

// Storage errors. Implementations wrap these so callers can tell a missing
// record apart from a backend that cannot be reached.
var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("record already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create stores a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its identifier
	GetByID(ctx context.Context, id string) (*domain.Loan, error)

	// List returns every loan in issue order
	List(ctx context.Context) ([]*domain.Loan, error)

	// UpdateStatus overwrites the stored status hint and bumps the revision
	UpdateStatus(ctx context.Context, id string, status string) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create appends a payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// List returns every payment in insertion order
	List(ctx context.Context) ([]*domain.Payment, error)

	// ListByLoanID retrieves all payments for a loan
	ListByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error)
}
