package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/repository"
)

type LoanRepository struct {
	mu    sync.RWMutex
	loans map[string]*domain.Loan
	order []string
}

func NewLoanRepository() *LoanRepository {
	return &LoanRepository{
		loans: make(map[string]*domain.Loan),
	}
}

func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.loans[loan.ID]; exists {
		return fmt.Errorf("%w: loan %s", repository.ErrDuplicate, loan.ID)
	}

	stored := *loan
	r.loans[loan.ID] = &stored
	r.order = append(r.order, loan.ID)

	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loan, exists := r.loans[id]
	if !exists {
		return nil, fmt.Errorf("%w: loan %s", repository.ErrNotFound, id)
	}

	out := *loan
	return &out, nil
}

func (r *LoanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Loan, 0, len(r.order))
	for _, id := range r.order {
		loan := *r.loans[id]
		result = append(result, &loan)
	}

	return result, nil
}

func (r *LoanRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	loan, exists := r.loans[id]
	if !exists {
		return fmt.Errorf("%w: loan %s", repository.ErrNotFound, id)
	}

	loan.Status = status
	loan.Revision++

	return nil
}
