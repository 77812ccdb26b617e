package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/repository"
)

const testPrefix = "sacco_test:"

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return s, client
}

func sampleLoan(id string) *domain.Loan {
	return &domain.Loan{
		ID:            id,
		MemberID:      "M-" + id,
		MemberName:    "Kamau",
		Amount:        decimal.RequireFromString("10000.50"),
		IssuedDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC),
		TotalInterest: decimal.NewFromInt(300),
		Status:        domain.LoanStatusActive,
		Revision:      1,
		CreatedAt:     time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC),
	}
}

func TestConnect(t *testing.T) {
	s, _ := newTestClient(t)

	client, err := Connect(context.Background(), ConnectionInfo{Addr: s.Addr(), Timeout: time.Second})
	require.NoError(t, err)
	_ = client.Close()

	addr := s.Addr()
	s.Close()
	_, err = Connect(context.Background(), ConnectionInfo{Addr: addr, Timeout: 100 * time.Millisecond})
	assert.True(t, errors.Is(err, repository.ErrStorageUnavailable))
}

func TestLoanRepository(t *testing.T) {
	s, client := newTestClient(t)
	repo := NewLoanRepository(client, testPrefix)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleLoan("l2")))
	require.NoError(t, repo.Create(ctx, sampleLoan("l1")))
	assert.True(t, s.Exists(testPrefix+"loans"))

	t.Run("duplicate", func(t *testing.T) {
		err := repo.Create(ctx, sampleLoan("l1"))
		assert.True(t, errors.Is(err, repository.ErrDuplicate))
	})

	t.Run("get round trips", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "l1")
		require.NoError(t, err)
		want := sampleLoan("l1")
		assert.True(t, want.Amount.Equal(got.Amount))
		assert.True(t, want.DueDate.Equal(got.DueDate))
		assert.Equal(t, want.MemberID, got.MemberID)
	})

	t.Run("list in issue order", func(t *testing.T) {
		got, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "l2", got[0].ID)
		assert.Equal(t, "l1", got[1].ID)
	})

	t.Run("missing loan", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nope")
		assert.True(t, errors.Is(err, repository.ErrNotFound))
		assert.True(t, errors.Is(repo.UpdateStatus(ctx, "nope", domain.LoanStatusPaid), repository.ErrNotFound))
	})

	t.Run("update status", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, "l2", domain.LoanStatusDefaulted))

		got, err := repo.GetByID(ctx, "l2")
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusDefaulted, got.Status)
		assert.Equal(t, 2, got.Revision)
	})
}

func TestLoanRepository_CreateLeavesNothingOnFailure(t *testing.T) {
	s, client := newTestClient(t)
	repo := NewLoanRepository(client, testPrefix)
	ctx := context.Background()

	// a string under the ordering key makes RPUSH fail with WRONGTYPE inside EXEC
	require.NoError(t, s.Set(testPrefix+"loan_ids", "corrupt"))

	err := repo.Create(ctx, sampleLoan("l1"))
	assert.True(t, errors.Is(err, repository.ErrStorageUnavailable))

	_, err = repo.GetByID(ctx, "l1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	s.Del(testPrefix + "loan_ids")
	require.NoError(t, repo.Create(ctx, sampleLoan("l1")))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "l1", got[0].ID)
}

func TestLoanRepository_EmptyList(t *testing.T) {
	_, client := newTestClient(t)

	got, err := NewLoanRepository(client, testPrefix).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoanRepository_StorageUnavailable(t *testing.T) {
	s, client := newTestClient(t)
	repo := NewLoanRepository(client, testPrefix)
	s.Close()

	_, err := repo.GetByID(context.Background(), "l1")
	assert.True(t, errors.Is(err, repository.ErrStorageUnavailable))
}

func TestPaymentRepository(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewPaymentRepository(client, testPrefix)
	ctx := context.Background()
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	for _, p := range []*domain.Payment{
		{ID: "p1", LoanID: "l1", Amount: decimal.NewFromInt(1000), Date: day, Revision: 1},
		{ID: "p2", LoanID: "l2", Amount: decimal.NewFromInt(50), Date: day, Revision: 1},
		{ID: "p3", LoanID: "l1", Amount: decimal.RequireFromString("99.99"), Date: day.AddDate(0, 0, 1), Revision: 1},
	} {
		require.NoError(t, repo.Create(ctx, p))
	}

	err := repo.Create(ctx, &domain.Payment{ID: "p2", LoanID: "l2"})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	forL1, err := repo.ListByLoanID(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, forL1, 2)
	assert.Equal(t, "p1", forL1[0].ID)
	assert.True(t, forL1[1].Amount.Equal(decimal.RequireFromString("99.99")))

	none, err := repo.ListByLoanID(ctx, "l9")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPaymentRepository_CreateLeavesNothingOnFailure(t *testing.T) {
	s, client := newTestClient(t)
	repo := NewPaymentRepository(client, testPrefix)
	ctx := context.Background()
	payment := &domain.Payment{ID: "p1", LoanID: "l1", Amount: decimal.NewFromInt(500), Revision: 1}

	// the global list accepts the id, the per-loan list does not
	require.NoError(t, s.Set(testPrefix+"loan_payments:l1", "corrupt"))

	err := repo.Create(ctx, payment)
	assert.True(t, errors.Is(err, repository.ErrStorageUnavailable))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, s.HGet(testPrefix+"payments", "p1"))

	s.Del(testPrefix + "loan_payments:l1")
	require.NoError(t, repo.Create(ctx, payment))

	forLoan, err := repo.ListByLoanID(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, forLoan, 1)

	all, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
