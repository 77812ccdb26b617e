package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/repository"

	goredis "github.com/redis/go-redis/v9"
)

type paymentRepository struct {
	client *goredis.Client
	keys   keys
}

func NewPaymentRepository(client *goredis.Client, prefix string) repository.PaymentRepository {
	return &paymentRepository{client: client, keys: keys{prefix: prefix}}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("encode payment: %w", err)
	}

	return insert(ctx, r.client, "payment", r.keys.payments(), payment.ID, data,
		r.keys.paymentIDs(), r.keys.loanPayments(payment.LoanID))
}

func (r *paymentRepository) List(ctx context.Context) ([]*domain.Payment, error) {
	return r.listFrom(ctx, r.keys.paymentIDs())
}

func (r *paymentRepository) ListByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	return r.listFrom(ctx, r.keys.loanPayments(loanID))
}

func (r *paymentRepository) listFrom(ctx context.Context, idsKey string) ([]*domain.Payment, error) {
	ids, err := r.client.LRange(ctx, idsKey, 0, -1).Result()
	if err != nil {
		return nil, translate(err, "payments", "")
	}
	if len(ids) == 0 {
		return []*domain.Payment{}, nil
	}

	values, err := r.client.HMGet(ctx, r.keys.payments(), ids...).Result()
	if err != nil {
		return nil, translate(err, "payments", "")
	}

	return decodeAll[domain.Payment](values)
}
