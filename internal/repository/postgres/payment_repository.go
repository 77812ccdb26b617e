package postgres

import (
	"context"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/repository"

	"github.com/jmoiron/sqlx"
)

const paymentColumns = `id, loan_id, amount, date, revision, created_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :loan_id, :amount, :date, :revision, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, payment)
	return translate(err, "payment", payment.ID)
}

func (r *paymentRepository) List(ctx context.Context) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		ORDER BY created_at, id
	`

	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, translate(err, "payments", "")
	}

	return payments, nil
}

func (r *paymentRepository) ListByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = $1
		ORDER BY created_at, id
	`

	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, translate(err, "payments", loanID)
	}

	return payments, nil
}
