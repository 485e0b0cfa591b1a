package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlowery/crewdesk/internal/auth"
	"github.com/mlowery/crewdesk/internal/models"
	"github.com/mlowery/crewdesk/internal/services"
	pkghttp "github.com/mlowery/crewdesk/pkg/http"
)

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	RegisterFunc             func(ctx context.Context, email, password, name, phone string) (*services.AccountResponse, error)
	VerifyOTPFunc            func(ctx context.Context, email, code string) error
	ResendOTPFunc            func(ctx context.Context, email string) error
	AuthenticateFunc         func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	ChangePasswordFunc       func(ctx context.Context, email, newPassword string) error
	UpdateProfileFunc        func(ctx context.Context, accountID, name, email, phone string) (*services.AccountResponse, error)
	CheckEmailResettableFunc func(ctx context.Context, email string) error
	IsAdminFunc              func(ctx context.Context, email string) (bool, error)
}

func (m *MockAccountService) Register(ctx context.Context, email, password, name, phone string) (*services.AccountResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name, phone)
	}
	return &services.AccountResponse{ID: "acct1", Email: email, Name: name, Phone: phone}, nil
}

func (m *MockAccountService) VerifyOTP(ctx context.Context, email, code string) error {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, code)
	}
	return nil
}

func (m *MockAccountService) ResendOTP(ctx context.Context, email string) error {
	if m.ResendOTPFunc != nil {
		return m.ResendOTPFunc(ctx, email)
	}
	return nil
}

func (m *MockAccountService) Authenticate(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, email, password)
	}
	return &services.AuthResponse{Token: "token"}, nil
}

func (m *MockAccountService) ChangePassword(ctx context.Context, email, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, email, newPassword)
	}
	return nil
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, accountID, name, email, phone string) (*services.AccountResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, accountID, name, email, phone)
	}
	return &services.AccountResponse{ID: accountID, Email: email, Name: name, Phone: phone}, nil
}

func (m *MockAccountService) CheckEmailResettable(ctx context.Context, email string) error {
	if m.CheckEmailResettableFunc != nil {
		return m.CheckEmailResettableFunc(ctx, email)
	}
	return nil
}

func (m *MockAccountService) IsAdmin(ctx context.Context, email string) (bool, error) {
	if m.IsAdminFunc != nil {
		return m.IsAdminFunc(ctx, email)
	}
	return false, nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRegisterHandler_Created(t *testing.T) {
	var gotEmail string
	svc := &MockAccountService{
		RegisterFunc: func(ctx context.Context, email, password, name, phone string) (*services.AccountResponse, error) {
			gotEmail = email
			return &services.AccountResponse{ID: "acct1", Email: email}, nil
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Register, "/api/auth/register", map[string]string{
		"email": "  Jane@Example.com ", "password": "secret1", "name": "Jane", "phone": "5550100",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "jane@example.com", gotEmail)

	var resp map[string]interface{}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["requiresOTP"])
	assert.Equal(t, "jane@example.com", resp["email"])
}

func TestRegisterHandler_MissingFields(t *testing.T) {
	h := NewAuthHandler(&MockAccountService{})

	rec := postJSON(t, h.Register, "/api/auth/register", map[string]string{
		"email": "jane@example.com", "password": "secret1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterHandler_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&MockAccountService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterHandler_Conflict(t *testing.T) {
	svc := &MockAccountService{
		RegisterFunc: func(ctx context.Context, email, password, name, phone string) (*services.AccountResponse, error) {
			return nil, models.ErrConflict
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Register, "/api/auth/register", map[string]string{
		"email": "jane@example.com", "password": "secret1", "name": "Jane", "phone": "5550100",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "conflict", resp.Error)
	assert.False(t, resp.Retryable)
}

func TestRegisterHandler_DeliveryFailureIsRetryable(t *testing.T) {
	svc := &MockAccountService{
		RegisterFunc: func(ctx context.Context, email, password, name, phone string) (*services.AccountResponse, error) {
			return nil, models.ErrDelivery
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Register, "/api/auth/register", map[string]string{
		"email": "jane@example.com", "password": "secret1", "name": "Jane", "phone": "5550100",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "delivery_failed", resp.Error)
	assert.True(t, resp.Retryable)
}

func TestVerifyOTPHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"success", nil, http.StatusOK, ""},
		{"unknown account", models.ErrNotFound, http.StatusNotFound, "not_found"},
		{"wrong code", models.ErrInvalidOTP, http.StatusBadRequest, "invalid_otp"},
		{"expired code", models.ErrOTPExpired, http.StatusBadRequest, "otp_expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAccountService{
				VerifyOTPFunc: func(ctx context.Context, email, code string) error {
					return tt.serviceErr
				},
			}
			h := NewAuthHandler(svc)

			rec := postJSON(t, h.VerifyOTP, "/api/auth/verify-otp", map[string]string{
				"email": "jane@example.com", "otp": "123456",
			})

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Error)
			}
		})
	}
}

func TestVerifyOTPHandler_RejectsMalformedCode(t *testing.T) {
	called := false
	svc := &MockAccountService{
		VerifyOTPFunc: func(ctx context.Context, email, code string) error {
			called = true
			return nil
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.VerifyOTP, "/api/auth/verify-otp", map[string]string{
		"email": "jane@example.com", "otp": "12ab56",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestResendOTPHandler_AlreadyVerified(t *testing.T) {
	svc := &MockAccountService{
		ResendOTPFunc: func(ctx context.Context, email string) error {
			return models.ErrAlreadyVerified
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.ResendOTP, "/api/auth/resend-otp", map[string]string{
		"email": "jane@example.com",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "already_verified", decodeError(t, rec).Error)
}

func TestLoginHandler_Success(t *testing.T) {
	svc := &MockAccountService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				Token:   "session-token",
				Account: services.AccountResponse{ID: "acct1", Email: email, Verified: true},
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/api/auth/login", map[string]string{
		"email": "jane@example.com", "password": "secret1",
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp services.AuthResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "session-token", resp.Token)
	assert.Equal(t, "acct1", resp.Account.ID)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	svc := &MockAccountService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return nil, models.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/api/auth/login", map[string]string{
		"email": "jane@example.com", "password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error)
}

func TestLoginHandler_NotVerified(t *testing.T) {
	svc := &MockAccountService{
		AuthenticateFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return nil, models.ErrNotVerified
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/api/auth/login", map[string]string{
		"email": "jane@example.com", "password": "secret1",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "not_verified", decodeError(t, rec).Error)
}

func TestChangePasswordHandler_NotFound(t *testing.T) {
	svc := &MockAccountService{
		ChangePasswordFunc: func(ctx context.Context, email, newPassword string) error {
			return models.ErrNotFound
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.ChangePassword, "/api/auth/change-password", map[string]string{
		"email": "nobody@example.com", "password": "new-secret",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProfileHandler_RequiresAuth(t *testing.T) {
	h := NewAuthHandler(&MockAccountService{})

	body, _ := json.Marshal(map[string]string{
		"name": "Jane", "email": "jane@example.com", "phone": "5550100",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/auth/update-profile", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfileHandler_UsesCallerAccountID(t *testing.T) {
	var gotAccountID string
	svc := &MockAccountService{
		UpdateProfileFunc: func(ctx context.Context, accountID, name, email, phone string) (*services.AccountResponse, error) {
			gotAccountID = accountID
			return &services.AccountResponse{ID: accountID, Name: name, Email: email, Phone: phone}, nil
		},
	}
	h := NewAuthHandler(svc)

	body, _ := json.Marshal(map[string]string{
		"name": "Jane", "email": "jane@example.com", "phone": "5550100",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/auth/update-profile", bytes.NewReader(body))
	claims := &models.TokenClaims{AccountID: "acct1", Email: "jane@example.com", Role: models.RoleEmployee}
	req = req.WithContext(context.WithValue(req.Context(), auth.AccountContextKey, claims))
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acct1", gotAccountID)
}

func TestUpdateProfileHandler_EmailTaken(t *testing.T) {
	svc := &MockAccountService{
		UpdateProfileFunc: func(ctx context.Context, accountID, name, email, phone string) (*services.AccountResponse, error) {
			return nil, models.ErrConflict
		},
	}
	h := NewAuthHandler(svc)

	body, _ := json.Marshal(map[string]string{
		"name": "Jane", "email": "taken@example.com", "phone": "5550100",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/auth/update-profile", bytes.NewReader(body))
	claims := &models.TokenClaims{AccountID: "acct1", Email: "jane@example.com", Role: models.RoleEmployee}
	req = req.WithContext(context.WithValue(req.Context(), auth.AccountContextKey, claims))
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Error)
}

func TestCheckEmailHandler(t *testing.T) {
	svc := &MockAccountService{
		CheckEmailResettableFunc: func(ctx context.Context, email string) error {
			if email == "jane@example.com" {
				return nil
			}
			return models.ErrNotFound
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.CheckEmail, "/api/auth/check-email", map[string]string{"email": "jane@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h.CheckEmail, "/api/auth/check-email", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckAdminHandler(t *testing.T) {
	svc := &MockAccountService{
		IsAdminFunc: func(ctx context.Context, email string) (bool, error) {
			switch email {
			case "boss@example.com":
				return true, nil
			case "jane@example.com":
				return false, nil
			default:
				return false, models.ErrNotFound
			}
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.CheckAdmin, "/api/auth/check-admin", map[string]string{"email": "boss@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp["isAdmin"])

	rec = postJSON(t, h.CheckAdmin, "/api/auth/check-admin", map[string]string{"email": "jane@example.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h.CheckAdmin, "/api/auth/check-admin", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
