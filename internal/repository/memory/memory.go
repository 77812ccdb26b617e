// Package memory keeps loans and payments in process memory.
package memory

import (
	"github.com/segyhp/sacco-loans/internal/repository"
)

var (
	_ repository.LoanRepository    = (*LoanRepository)(nil)
	_ repository.PaymentRepository = (*PaymentRepository)(nil)
)
