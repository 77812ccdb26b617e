package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/sacco-loans/internal/domain"
	"github.com/segyhp/sacco-loans/internal/handler"
	customError "github.com/segyhp/sacco-loans/pkg/errors"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) IssueLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, []domain.ScheduleEntry, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Loan), args.Get(1).([]domain.ScheduleEntry), args.Error(2)
}

func (m *MockLoanService) RecordPayment(ctx context.Context, loanID string, request *domain.CreatePaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockLoanService) GetLoanSummary(ctx context.Context, loanID string) (*domain.LoanSummary, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanSummary), args.Error(1)
}

func (m *MockLoanService) ListLoanSummaries(ctx context.Context) ([]*domain.LoanSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanSummary), args.Error(1)
}

func (m *MockLoanService) GetSchedule(ctx context.Context, loanID string) ([]domain.ScheduleEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScheduleEntry), args.Error(1)
}

func (m *MockLoanService) ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockLoanService) ListDefaulters(ctx context.Context) ([]*domain.Defaulter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Defaulter), args.Error(1)
}

func (m *MockLoanService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardStats), args.Error(1)
}

func (m *MockLoanService) ReconcileStatuses(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanService) ExportDefaulters(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func newRouter(svc *MockLoanService) *mux.Router {
	router := mux.NewRouter()
	handler.NewLoanHandler(svc, nil).Register(router)
	return router
}

func serve(router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func sampleLoan() *domain.Loan {
	return &domain.Loan{
		ID:         "loan-1",
		MemberID:   "M-1",
		MemberName: "Akinyi",
		Amount:     decimal.NewFromInt(10000),
		IssuedDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC),
		Status:     domain.LoanStatusActive,
		Revision:   1,
	}
}

func TestLoanHandler_CreateLoan(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockLoanService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "issues the loan",
			body: map[string]interface{}{
				"member_id":      "M-1",
				"member_name":    "Akinyi",
				"amount":         "10000",
				"due_date":       "2025-01-11",
				"total_interest": "0",
			},
			setupMock: func(m *MockLoanService) {
				m.On("IssueLoan", mock.Anything, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
					return req.MemberID == "M-1" && req.Amount.Equal(decimal.NewFromInt(10000)) && req.DueDate == "2025-01-11"
				})).Return(sampleLoan(), make([]domain.ScheduleEntry, 10), nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed json",
			body:           "{not json",
			setupMock:      func(m *MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name: "validation failure",
			body: map[string]interface{}{"member_id": "M-1"},
			setupMock: func(m *MockLoanService) {
				m.On("IssueLoan", mock.Anything, mock.Anything).
					Return(nil, nil, customError.WrapValidation("member_name is required")).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeValidation,
		},
		{
			name: "due date not after issue date",
			body: map[string]interface{}{"member_id": "M-1", "member_name": "A", "amount": 10, "due_date": "2020-01-01"},
			setupMock: func(m *MockLoanService) {
				m.On("IssueLoan", mock.Anything, mock.Anything).
					Return(nil, nil, customError.WrapInvalidDueDate("due_date must be after the issue date")).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   customError.ErrCodeInvalidDueDate,
		},
		{
			name: "storage unavailable",
			body: map[string]interface{}{"member_id": "M-1", "member_name": "A", "amount": 10, "due_date": "2030-01-01"},
			setupMock: func(m *MockLoanService) {
				m.On("IssueLoan", mock.Anything, mock.Anything).
					Return(nil, nil, customError.WrapStorageUnavailable(errors.New("dial tcp: refused"))).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   customError.ErrCodeStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockLoanService{}
			tt.setupMock(svc)

			w, env := serve(newRouter(svc), http.MethodPost, "/api/v1/loans", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, env.Error)
			if tt.expectedStatus == http.StatusCreated {
				var created domain.CreateLoanResponse
				require.NoError(t, json.Unmarshal(env.Data, &created))
				assert.Equal(t, "loan-1", created.Loan.ID)
				assert.Len(t, created.Schedule, 10)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestLoanHandler_MakePayment(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{name: "recorded", expectedStatus: http.StatusCreated},
		{name: "unknown loan", err: customError.WrapLoanNotFound("loan-1"), expectedStatus: http.StatusNotFound, expectedCode: customError.ErrCodeNotFound},
		{name: "over payment", err: customError.WrapPaymentExceedsBalance("500", "100"), expectedStatus: http.StatusUnprocessableEntity, expectedCode: customError.ErrCodePaymentExceedsBalance},
		{name: "settled loan", err: customError.WrapNoOutstandingBalance("loan-1"), expectedStatus: http.StatusUnprocessableEntity, expectedCode: customError.ErrCodeNoOutstandingBalance},
		{name: "unexpected failure", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError, expectedCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockLoanService{}
			payment := &domain.Payment{ID: "pay-1", LoanID: "loan-1", Amount: decimal.NewFromInt(500)}
			call := svc.On("RecordPayment", mock.Anything, "loan-1", mock.MatchedBy(func(req *domain.CreatePaymentRequest) bool {
				return req.Amount.Equal(decimal.NewFromInt(500)) && req.Date == "2025-01-05"
			}))
			if tt.err != nil {
				call.Return(nil, tt.err)
			} else {
				call.Return(payment, nil)
			}

			w, env := serve(newRouter(svc), http.MethodPost, "/api/v1/loans/loan-1/payments",
				map[string]string{"amount": "500", "date": "2025-01-05"})

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, env.Error)
			svc.AssertExpectations(t)
		})
	}
}

func TestLoanHandler_GetLoan(t *testing.T) {
	svc := &MockLoanService{}
	summary := &domain.LoanSummary{
		Loan:          sampleLoan(),
		Status:        domain.PaymentStatus{TotalDue: decimal.NewFromInt(10000), Remaining: decimal.NewFromInt(10000)},
		DerivedStatus: domain.LoanStatusActive,
	}
	svc.On("GetLoanSummary", mock.Anything, "loan-1").Return(summary, nil)
	svc.On("GetLoanSummary", mock.Anything, "missing").Return(nil, customError.WrapLoanNotFound("missing"))

	router := newRouter(svc)

	w, env := serve(router, http.MethodGet, "/api/v1/loans/loan-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var got domain.LoanSummary
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, domain.LoanStatusActive, got.DerivedStatus)
	assert.True(t, got.Status.Remaining.Equal(decimal.NewFromInt(10000)))

	w, env = serve(router, http.MethodGet, "/api/v1/loans/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, customError.ErrCodeNotFound, env.Error)
	assert.Equal(t, "Loan with ID missing not found", env.Message)
}

func TestLoanHandler_StorageErrorHidesCause(t *testing.T) {
	svc := &MockLoanService{}
	svc.On("Dashboard", mock.Anything).
		Return(nil, customError.WrapStorageUnavailable(errors.New("dial tcp 10.0.0.5:5432: connection refused")))

	w, env := serve(newRouter(svc), http.MethodGet, "/api/v1/dashboard", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, customError.ErrCodeStorageUnavailable, env.Error)
	assert.Equal(t, "storage operation failed", env.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestLoanHandler_ReadEndpoints(t *testing.T) {
	svc := &MockLoanService{}
	svc.On("ListLoanSummaries", mock.Anything).Return([]*domain.LoanSummary{{Loan: sampleLoan()}}, nil)
	svc.On("GetSchedule", mock.Anything, "loan-1").Return(make([]domain.ScheduleEntry, 10), nil)
	svc.On("ListPayments", mock.Anything, "loan-1").Return([]*domain.Payment{}, nil)
	svc.On("ListDefaulters", mock.Anything).Return([]*domain.Defaulter{{Loan: sampleLoan(), DaysLate: 9}}, nil)
	svc.On("Dashboard", mock.Anything).Return(&domain.DashboardStats{Total: 1, Defaulted: 1}, nil)
	svc.On("ReconcileStatuses", mock.Anything).Return(3, nil)

	router := newRouter(svc)

	tests := []struct {
		method string
		path   string
		check  func(t *testing.T, data json.RawMessage)
	}{
		{http.MethodGet, "/api/v1/loans", func(t *testing.T, data json.RawMessage) {
			var got []domain.LoanSummary
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Len(t, got, 1)
		}},
		{http.MethodGet, "/api/v1/loans/loan-1/schedule", func(t *testing.T, data json.RawMessage) {
			var got domain.ScheduleResponse
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, "loan-1", got.LoanID)
			assert.Len(t, got.Schedule, 10)
		}},
		{http.MethodGet, "/api/v1/loans/loan-1/payments", nil},
		{http.MethodGet, "/api/v1/defaulters", func(t *testing.T, data json.RawMessage) {
			var got []domain.Defaulter
			require.NoError(t, json.Unmarshal(data, &got))
			require.Len(t, got, 1)
			assert.Equal(t, 9, got[0].DaysLate)
		}},
		{http.MethodGet, "/api/v1/dashboard", func(t *testing.T, data json.RawMessage) {
			var got domain.DashboardStats
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, domain.DashboardStats{Total: 1, Defaulted: 1}, got)
		}},
		{http.MethodPost, "/api/v1/loans/reconcile", func(t *testing.T, data json.RawMessage) {
			var got domain.ReconcileResponse
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, 3, got.Updated)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w, env := serve(router, tt.method, tt.path, nil)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, env.Success)
			if tt.check != nil {
				tt.check(t, env.Data)
			}
		})
	}

	svc.AssertExpectations(t)
}

func TestLoanHandler_ExportDefaulters(t *testing.T) {
	svc := &MockLoanService{}
	svc.On("ExportDefaulters", mock.Anything).Return([]byte("PK\x03\x04"), nil).Once()

	w, _ := serve(newRouter(svc), http.MethodGet, "/api/v1/defaulters/export", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "defaulters-")
	assert.Equal(t, []byte("PK\x03\x04"), w.Body.Bytes())
	svc.AssertExpectations(t)
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, handler.StatusForCode(customError.ErrCodeValidation))
	assert.Equal(t, http.StatusNotFound, handler.StatusForCode(customError.ErrCodeNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, handler.StatusForCode(customError.ErrCodePaymentExceedsBalance))
	assert.Equal(t, http.StatusServiceUnavailable, handler.StatusForCode(customError.ErrCodeStorageUnavailable))
	assert.Equal(t, http.StatusInternalServerError, handler.StatusForCode(customError.ErrCodeExportFailed))
}
