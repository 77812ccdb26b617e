package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/repository"
)

type PaymentRepository struct {
	mu       sync.RWMutex
	payments []*domain.Payment
	ids      map[string]struct{}
	index    map[string][]int
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		ids:   make(map[string]struct{}),
		index: make(map[string][]int),
	}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[payment.ID]; exists {
		return fmt.Errorf("%w: payment %s", repository.ErrDuplicate, payment.ID)
	}

	stored := *payment
	r.payments = append(r.payments, &stored)
	r.ids[payment.ID] = struct{}{}
	r.index[payment.LoanID] = append(r.index[payment.LoanID], len(r.payments)-1)

	return nil
}

func (r *PaymentRepository) List(ctx context.Context) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		out := *p
		result = append(result, &out)
	}

	return result, nil
}

func (r *PaymentRepository) ListByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	positions := r.index[loanID]
	result := make([]*domain.Payment, 0, len(positions))
	for _, pos := range positions {
		out := *r.payments[pos]
		result = append(result, &out)
	}

	return result, nil
}
