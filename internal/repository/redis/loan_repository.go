package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/repository"

	goredis "github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 5

type loanRepository struct {
	client *goredis.Client
	keys   keys
}

func NewLoanRepository(client *goredis.Client, prefix string) repository.LoanRepository {
	return &loanRepository{client: client, keys: keys{prefix: prefix}}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	data, err := json.Marshal(loan)
	if err != nil {
		return fmt.Errorf("encode loan: %w", err)
	}

	return insert(ctx, r.client, "loan", r.keys.loans(), loan.ID, data, r.keys.loanIDs())
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	raw, err := r.client.HGet(ctx, r.keys.loans(), id).Result()
	if err != nil {
		return nil, translate(err, "loan", id)
	}

	var loan domain.Loan
	if err := json.Unmarshal([]byte(raw), &loan); err != nil {
		return nil, fmt.Errorf("decode loan %s: %w", id, err)
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	ids, err := r.client.LRange(ctx, r.keys.loanIDs(), 0, -1).Result()
	if err != nil {
		return nil, translate(err, "loans", "")
	}
	if len(ids) == 0 {
		return []*domain.Loan{}, nil
	}

	values, err := r.client.HMGet(ctx, r.keys.loans(), ids...).Result()
	if err != nil {
		return nil, translate(err, "loans", "")
	}

	return decodeAll[domain.Loan](values)
}

// UpdateStatus rewrites the loan document under WATCH so a concurrent
// writer forces a retry instead of a lost update.
func (r *loanRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	key := r.keys.loans()

	update := func(tx *goredis.Tx) error {
		raw, err := tx.HGet(ctx, key, id).Result()
		if err != nil {
			return err
		}

		var loan domain.Loan
		if err := json.Unmarshal([]byte(raw), &loan); err != nil {
			return fmt.Errorf("decode loan %s: %w", id, err)
		}
		loan.Status = status
		loan.Revision++

		data, err := json.Marshal(&loan)
		if err != nil {
			return fmt.Errorf("encode loan: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, id, data)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, update, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return translate(err, "loan", id)
	}

	return fmt.Errorf("%w: loan %s changed concurrently", repository.ErrStorageUnavailable, id)
}
