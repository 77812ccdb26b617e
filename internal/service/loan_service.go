package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/segyhp/sacco-loans/internal/accounting"
	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/metrics"
	"github.com/segyhp/sacco-loans/internal/repository"
	customError "github.com/segyhp/sacco-loans/pkg/errors"
	"github.com/segyhp/sacco-loans/pkg/utils"
	"github.com/segyhp/sacco-loans/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LoanService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	validator   *validator.Validator
	metrics     *metrics.Collector
	logger      *zap.Logger
	now         func() time.Time

	// serializes the remaining-balance check with the payment insert
	paymentMu sync.Mutex
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	collector *metrics.Collector,
	logger *zap.Logger,
) *LoanService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LoanService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		validator:   validator.New(),
		metrics:     collector,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the time source; every derived value is evaluated as of now().
func (s *LoanService) WithClock(now func() time.Time) *LoanService {
	s.now = now
	return s
}

// IssueLoan validates and stores a new loan issued today, returning it with its schedule
func (s *LoanService) IssueLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, []domain.ScheduleEntry, error) {
	request.MemberID = strings.TrimSpace(request.MemberID)
	request.MemberName = strings.TrimSpace(request.MemberName)

	if err := s.validator.Struct(request); err != nil {
		return nil, nil, err
	}
	if !isWholeCents(request.Amount) {
		return nil, nil, customError.WrapInvalidLoanAmount(request.Amount.String())
	}

	now := s.now()
	issued := utils.StartOfDay(now)

	dueDate, err := utils.ParseDate(request.DueDate)
	if err != nil {
		return nil, nil, customError.WrapInvalidDueDate("due_date must be a date in 2006-01-02 format")
	}
	if !dueDate.After(issued) {
		return nil, nil, customError.WrapInvalidDueDate("due_date must be after the issue date " + utils.FormatDate(issued))
	}

	loan := &domain.Loan{
		ID:            uuid.NewString(),
		MemberID:      request.MemberID,
		MemberName:    request.MemberName,
		Amount:        request.Amount,
		IssuedDate:    issued,
		DueDate:       dueDate,
		TotalInterest: request.TotalInterest,
		Status:        domain.LoanStatusActive,
		Revision:      1,
		CreatedAt:     now.UTC(),
	}

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, nil, s.storeError(err, loan.ID)
	}

	if s.metrics != nil {
		s.metrics.LoanIssued()
	}
	s.logger.Info("loan issued",
		zap.String("loan_id", loan.ID),
		zap.String("member_id", loan.MemberID),
		zap.String("amount", loan.Amount.String()),
		zap.String("due_date", utils.FormatDate(loan.DueDate)),
	)

	return loan, accounting.LoanSchedule(loan), nil
}

// RecordPayment appends a payment after re-checking it against the remaining balance
func (s *LoanService) RecordPayment(ctx context.Context, loanID string, request *domain.CreatePaymentRequest) (*domain.Payment, error) {
	if err := s.validator.Struct(request); err != nil {
		s.rejected(customError.ErrCodeValidation)
		return nil, err
	}
	if !isWholeCents(request.Amount) {
		s.rejected(customError.ErrCodeInvalidPaymentAmount)
		return nil, customError.WrapInvalidPaymentAmount(request.Amount.String())
	}

	now := s.now()
	today := utils.StartOfDay(now)
	date := today
	if request.Date != "" {
		parsed, err := utils.ParseDate(request.Date)
		if err != nil {
			return nil, customError.WrapValidation("date must be a date in 2006-01-02 format")
		}
		if parsed.After(today) {
			s.rejected(customError.ErrCodeValidation)
			return nil, customError.WrapValidation("date must not be after " + utils.FormatDate(today))
		}
		date = parsed
	}

	s.paymentMu.Lock()
	defer s.paymentMu.Unlock()

	loan, payments, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if date.Before(loan.IssuedDate) {
		s.rejected(customError.ErrCodeValidation)
		return nil, customError.WrapValidation("date must not be before the issue date " + utils.FormatDate(loan.IssuedDate))
	}

	status := accounting.PaymentStatus(loan, payments, now)
	if status.Remaining.IsZero() {
		s.rejected(customError.ErrCodeNoOutstandingBalance)
		return nil, customError.WrapNoOutstandingBalance(loanID)
	}
	if request.Amount.GreaterThan(status.Remaining) {
		s.rejected(customError.ErrCodePaymentExceedsBalance)
		return nil, customError.WrapPaymentExceedsBalance(request.Amount.String(), status.Remaining.String())
	}

	payment := &domain.Payment{
		ID:        uuid.NewString(),
		LoanID:    loan.ID,
		Amount:    request.Amount,
		Date:      date,
		Revision:  1,
		CreatedAt: now.UTC(),
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, s.storeError(err, loanID)
	}

	if s.metrics != nil {
		s.metrics.PaymentRecorded(payment.Amount)
	}
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("loan_id", loan.ID),
		zap.String("amount", payment.Amount.String()),
		zap.String("remaining", status.Remaining.Sub(payment.Amount).String()),
	)

	return payment, nil
}

// GetLoanSummary returns a loan with its payments, status and marked schedule
func (s *LoanService) GetLoanSummary(ctx context.Context, loanID string) (*domain.LoanSummary, error) {
	loan, payments, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	summary := s.summarize(loan, payments, s.now())
	summary.Payments = payments
	return summary, nil
}

// ListLoanSummaries returns every loan with its derived status and schedule
func (s *LoanService) ListLoanSummaries(ctx context.Context) ([]*domain.LoanSummary, error) {
	loans, byLoan, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summaries := make([]*domain.LoanSummary, 0, len(loans))
	for _, loan := range loans {
		summaries = append(summaries, s.summarize(loan, byLoan[loan.ID], now))
	}

	return summaries, nil
}

// GetSchedule returns the 10-day schedule with each day marked from actual payments
func (s *LoanService) GetSchedule(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error) {
	loan, payments, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return accounting.MarkSchedulePaid(accounting.LoanSchedule(loan), payments), nil
}

// ListPayments returns the payments recorded against an existing loan
func (s *LoanService) ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	_, payments, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

// ListDefaulters returns defaulted loans, most days late first.
// Penalties are only evaluated for loans in default.
func (s *LoanService) ListDefaulters(ctx context.Context) ([]*domain.Defaulter, error) {
	loans, byLoan, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	defaulters := make([]*domain.Defaulter, 0)
	for _, loan := range loans {
		payments := byLoan[loan.ID]
		if !accounting.IsLoanDefaulted(loan, payments, now) {
			continue
		}

		status := accounting.PaymentStatus(loan, payments, now)
		daysLate := accounting.DaysLate(loan.DueDate, now)
		if daysLate < 0 {
			daysLate = 0
		}

		defaulters = append(defaulters, &domain.Defaulter{
			Loan:      loan,
			DaysLate:  daysLate,
			Remaining: status.Remaining,
			Penalty:   accounting.LatePenalty(payments, loan.DueDate, now),
		})
	}

	sort.SliceStable(defaulters, func(i, j int) bool {
		return defaulters[i].DaysLate > defaulters[j].DaysLate
	})

	return defaulters, nil
}

// Dashboard counts loans by derived status
func (s *LoanService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	loans, byLoan, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := &domain.DashboardStats{Total: len(loans)}
	for _, loan := range loans {
		switch accounting.DeriveStatus(loan, byLoan[loan.ID], now) {
		case domain.LoanStatusPaid:
			stats.Paid++
		case domain.LoanStatusDefaulted:
			stats.Defaulted++
		default:
			stats.Active++
		}
	}

	if s.metrics != nil {
		s.metrics.ObservePortfolio(*stats)
	}

	return stats, nil
}

// ReconcileStatuses writes the derived status back wherever the stored hint is stale
func (s *LoanService) ReconcileStatuses(ctx context.Context) (int, error) {
	loans, byLoan, err := s.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	updated := 0
	for _, loan := range loans {
		derived := accounting.DeriveStatus(loan, byLoan[loan.ID], now)
		if derived == loan.Status {
			continue
		}

		if err := s.LoanRepo.UpdateStatus(ctx, loan.ID, derived); err != nil {
			s.logger.Error("status reconciliation failed",
				zap.String("loan_id", loan.ID),
				zap.Error(err),
			)
			return updated, s.storeError(err, loan.ID)
		}

		s.logger.Info("loan status reconciled",
			zap.String("loan_id", loan.ID),
			zap.String("from", loan.Status),
			zap.String("to", derived),
		)
		updated++
	}

	if s.metrics != nil {
		s.metrics.StatusesReconciled(updated)
	}

	return updated, nil
}

func (s *LoanService) summarize(loan *domain.Loan, payments []*domain.Payment, now time.Time) *domain.LoanSummary {
	return &domain.LoanSummary{
		Loan:          loan,
		Status:        accounting.PaymentStatus(loan, payments, now),
		DerivedStatus: accounting.DeriveStatus(loan, payments, now),
		Schedule:      accounting.MarkSchedulePaid(accounting.LoanSchedule(loan), payments),
	}
}

func (s *LoanService) loadLoan(ctx context.Context, loanID string) (*domain.Loan, []*domain.Payment, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, s.storeError(err, loanID)
	}

	payments, err := s.PaymentRepo.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, nil, s.storeError(err, loanID)
	}

	return loan, payments, nil
}

func (s *LoanService) loadAll(ctx context.Context) ([]*domain.Loan, map[string][]*domain.Payment, error) {
	loans, err := s.LoanRepo.List(ctx)
	if err != nil {
		return nil, nil, s.storeError(err, "")
	}

	payments, err := s.PaymentRepo.List(ctx)
	if err != nil {
		return nil, nil, s.storeError(err, "")
	}

	byLoan := make(map[string][]*domain.Payment, len(loans))
	for _, p := range payments {
		byLoan[p.LoanID] = append(byLoan[p.LoanID], p)
	}

	return loans, byLoan, nil
}

// storeError separates missing records from backend failures
func (s *LoanService) storeError(err error, loanID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return customError.WrapLoanNotFound(loanID)
	}

	s.logger.Error("storage operation failed", zap.String("loan_id", loanID), zap.Error(err))
	return customError.WrapStorageUnavailable(err)
}

// amounts are stored with two decimal places
func isWholeCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(2))
}

func (s *LoanService) rejected(code string) {
	if s.metrics != nil {
		s.metrics.PaymentRejected(code)
	}
}
