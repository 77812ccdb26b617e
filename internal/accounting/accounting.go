// Package accounting derives repayment state from a loan and its payments.
//
// Every function here is pure: the current instant is passed in as asOf and
// nothing is cached, so results always reflect the payments supplied.
// Monetary rounding uses decimal.Round, which rounds half away from zero.
package accounting

import (
	"time"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/pkg/utils"

	"github.com/shopspring/decimal"
)

// ScheduleDays is the fixed number of daily installments per loan.
const ScheduleDays = 10

var (
	scheduleDivisor = decimal.NewFromInt(ScheduleDays)
	// Paid-so-far is assumed to be 90% of the original principal.
	inferredPaidRatio = decimal.RequireFromString("0.9")
	penaltyRate       = decimal.RequireFromString("0.1")
)

// TotalPaid sums payment amounts without rounding.
func TotalPaid(payments []*domain.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// PaymentStatus computes the balance position of loan as of asOf.
// Interest is informational and never part of the amount due.
func PaymentStatus(loan *domain.Loan, payments []*domain.Payment, asOf time.Time) domain.PaymentStatus {
	totalPaid := TotalPaid(payments)
	totalDue := loan.Amount

	return domain.PaymentStatus{
		TotalPaid: totalPaid,
		TotalDue:  totalDue,
		Remaining: decimal.Max(decimal.Zero, totalDue.Sub(totalPaid)),
		IsPaid:    totalPaid.GreaterThanOrEqual(totalDue),
		IsOverdue: totalPaid.LessThan(totalDue) && asOf.After(loan.DueDate),
	}
}

// IsLoanDefaulted reports whether loan is overdue and not fully paid.
func IsLoanDefaulted(loan *domain.Loan, payments []*domain.Payment, asOf time.Time) bool {
	status := PaymentStatus(loan, payments, asOf)
	return status.IsOverdue && !status.IsPaid
}

// DeriveStatus maps the payment position onto the stored status vocabulary.
func DeriveStatus(loan *domain.Loan, payments []*domain.Payment, asOf time.Time) string {
	status := PaymentStatus(loan, payments, asOf)
	switch {
	case status.IsPaid:
		return domain.LoanStatusPaid
	case status.IsOverdue:
		return domain.LoanStatusDefaulted
	default:
		return domain.LoanStatusActive
	}
}

// DailyRepayment splits amount into ten installments rounded to the cent.
// 1005 -> 100.5, 1001 -> 100.1, 1000.05 -> 100.01.
func DailyRepayment(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(scheduleDivisor).Round(2)
}

// LoanSchedule returns the ten daily installments for loan. Entry i is due
// i days after the issue date. Every installment carries the same rounded
// amount; the last one does not absorb the rounding remainder, so the
// schedule total may differ from the principal by a few cents.
func LoanSchedule(loan *domain.Loan) []domain.ScheduleEntry {
	daily := DailyRepayment(loan.Amount)
	schedule := make([]domain.ScheduleEntry, 0, ScheduleDays)

	for day := 1; day <= ScheduleDays; day++ {
		schedule = append(schedule, domain.ScheduleEntry{
			Day:        day,
			DueDate:    utils.AddDays(loan.IssuedDate, day),
			Amount:     daily,
			PaidAmount: decimal.Zero,
			IsPaid:     false,
		})
	}

	return schedule
}

// MarkSchedulePaid buckets payments into each entry's calendar day
// [dueDate, dueDate+1d) and flags the entry paid when the bucket covers it.
// The input schedule is not modified.
func MarkSchedulePaid(schedule []domain.ScheduleEntry, payments []*domain.Payment) []domain.ScheduleEntry {
	marked := make([]domain.ScheduleEntry, len(schedule))

	for i, entry := range schedule {
		dayEnd := utils.AddDays(entry.DueDate, 1)
		paid := decimal.Zero
		for _, p := range payments {
			if !p.Date.Before(entry.DueDate) && p.Date.Before(dayEnd) {
				paid = paid.Add(p.Amount)
			}
		}

		entry.PaidAmount = paid
		entry.IsPaid = paid.GreaterThanOrEqual(entry.Amount)
		marked[i] = entry
	}

	return marked
}

// DaysLate counts whole days elapsed since dueDate. Negative before the due date.
func DaysLate(dueDate, asOf time.Time) int {
	return utils.WholeDaysBetween(dueDate, asOf)
}

// LatePenalty is a flat 10% of a principal inferred from the payments,
// treating the amount paid so far as 90% of it. It is zero until asOf is
// past dueDate by at least one whole day, and zero when nothing was paid.
// It does not look at whether the loan has been paid off.
func LatePenalty(payments []*domain.Payment, dueDate, asOf time.Time) decimal.Decimal {
	if !asOf.After(dueDate) {
		return decimal.Zero
	}
	if DaysLate(dueDate, asOf) <= 0 {
		return decimal.Zero
	}

	inferredPrincipal := TotalPaid(payments).Div(inferredPaidRatio)
	return inferredPrincipal.Mul(penaltyRate).Round(2)
}

// RollForwardPayment returns the part of payment exceeding one day's installment.
func RollForwardPayment(payment, dailyRepayment decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, payment.Sub(dailyRepayment))
}
