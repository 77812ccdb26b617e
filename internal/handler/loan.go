package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/segyhp/sacco-loans/internal/domain"
	customError "github.com/segyhp/sacco-loans/pkg/errors"
	"github.com/segyhp/sacco-loans/pkg/response"
	"github.com/segyhp/sacco-loans/pkg/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LoanService is the subset of the service layer served over HTTP
type LoanService interface {
	IssueLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, []domain.ScheduleEntry, error)
	RecordPayment(ctx context.Context, loanID string, request *domain.CreatePaymentRequest) (*domain.Payment, error)
	GetLoanSummary(ctx context.Context, loanID string) (*domain.LoanSummary, error)
	ListLoanSummaries(ctx context.Context) ([]*domain.LoanSummary, error)
	GetSchedule(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error)
	ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error)
	ListDefaulters(ctx context.Context) ([]*domain.Defaulter, error)
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
	ReconcileStatuses(ctx context.Context) (int, error)
	ExportDefaulters(ctx context.Context) ([]byte, error)
}

type LoanHandler struct {
	service LoanService
	logger  *zap.Logger
}

func NewLoanHandler(service LoanService, logger *zap.Logger) *LoanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LoanHandler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the loan API on router
func (h *LoanHandler) Register(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", h.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/reconcile", h.Reconcile).Methods(http.MethodPost)
	api.HandleFunc("/loans/{loanId}", h.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/schedule", h.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/payments", h.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/payments", h.MakePayment).Methods(http.MethodPost)
	api.HandleFunc("/defaulters", h.ListDefaulters).Methods(http.MethodGet)
	api.HandleFunc("/defaulters/export", h.ExportDefaulters).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
}

// CreateLoan issues a new loan
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, customError.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}

	loan, schedule, err := h.service.IssueLoan(r.Context(), &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, domain.CreateLoanResponse{Loan: loan, Schedule: schedule})
}

// ListLoans returns every loan with its repayment status
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListLoanSummaries(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, summaries)
}

// GetLoan returns one loan with its payments and schedule
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetLoanSummary(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, summary)
}

func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.ScheduleResponse{LoanID: loanID, Schedule: schedule})
}

func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, payments)
}

// MakePayment records a repayment against a loan
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	var request domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, customError.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), mux.Vars(r)["loanId"], &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, payment)
}

func (h *LoanHandler) ListDefaulters(w http.ResponseWriter, r *http.Request) {
	defaulters, err := h.service.ListDefaulters(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, defaulters)
}

// ExportDefaulters downloads the defaulters list as a spreadsheet
func (h *LoanHandler) ExportDefaulters(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportDefaulters(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Attachment(w, xlsxContentType, "defaulters-"+utils.FormatDate(time.Now().UTC())+".xlsx", data)
}

func (h *LoanHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, stats)
}

// Reconcile writes derived statuses back to the store
func (h *LoanHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.ReconcileStatuses(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, domain.ReconcileResponse{Updated: updated})
}

func (h *LoanHandler) writeError(w http.ResponseWriter, err error) {
	code := customError.Code(err)
	if code == "" {
		h.logger.Error("unhandled service error", zap.Error(err))
		response.InternalServerError(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	message := customError.Message(err)
	status := StatusForCode(code)
	switch {
	case status == http.StatusNotFound:
		response.NotFound(w, code, message)
	case status >= http.StatusInternalServerError:
		h.logger.Error("request failed", zap.String("code", code), zap.Error(err))
		response.Error(w, status, code, message)
	default:
		response.Error(w, status, code, message)
	}
}

// StatusForCode maps a business error code to its HTTP status
func StatusForCode(code string) int {
	switch code {
	case customError.ErrCodeValidation,
		customError.ErrCodeInvalidLoanAmount,
		customError.ErrCodeInvalidPaymentAmount,
		customError.ErrCodeInvalidDueDate:
		return http.StatusBadRequest
	case customError.ErrCodeNotFound:
		return http.StatusNotFound
	case customError.ErrCodePaymentExceedsBalance,
		customError.ErrCodeNoOutstandingBalance:
		return http.StatusUnprocessableEntity
	case customError.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
