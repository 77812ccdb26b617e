package postgres

import (
	"context"
	"database/sql"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/repository"

	"github.com/jmoiron/sqlx"
)

const loanColumns = `id, member_id, member_name, amount, issued_date, due_date, total_interest, status, revision, created_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) repository.LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :member_id, :member_name, :amount, :issued_date, :due_date, :total_interest, :status, :revision, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, loan)
	return translate(err, "loan", loan.ID)
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, translate(err, "loan", id)
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		ORDER BY created_at, id
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query); err != nil {
		return nil, translate(err, "loans", "")
	}

	return loans, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `
		UPDATE loans
		SET status = $2, revision = revision + 1
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return translate(err, "loan", id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, "loan", id)
	}
	if n == 0 {
		return translate(sql.ErrNoRows, "loan", id)
	}

	return nil
}
