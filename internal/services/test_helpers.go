package services

import (
	"context"
	"time"

	"github.com/mlowery/crewdesk/internal/models"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.Account, error)
	CreateFunc             func(ctx context.Context, account *models.Account) (*models.Account, error)
	DeleteFunc             func(ctx context.Context, id string) error
	SetChallengeFunc       func(ctx context.Context, id, code string, expiresAt time.Time) error
	MarkVerifiedFunc       func(ctx context.Context, id string) error
	UpdatePasswordHashFunc func(ctx context.Context, id, passwordHash string) error
	UpdateProfileFunc      func(ctx context.Context, id, name, email, phone string) (*models.Account, error)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	created := *account
	created.ID = "acct_test"
	now := time.Now()
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.Role == "" {
		created.Role = models.RoleEmployee
	}
	return &created, nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) SetChallenge(ctx context.Context, id, code string, expiresAt time.Time) error {
	if m.SetChallengeFunc != nil {
		return m.SetChallengeFunc(ctx, id, code, expiresAt)
	}
	return nil
}

func (m *MockAccountRepository) MarkVerified(ctx context.Context, id string) error {
	if m.MarkVerifiedFunc != nil {
		return m.MarkVerifiedFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockAccountRepository) UpdateProfile(ctx context.Context, id, name, email, phone string) (*models.Account, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, name, email, phone)
	}
	return nil, models.ErrInternalServer
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendOTPEmailFunc func(ctx context.Context, email, code string, expiresAt time.Time) error
	SentTo           []string
}

func (m *MockEmailSender) SendOTPEmail(ctx context.Context, email, code string, expiresAt time.Time) error {
	if m.SendOTPEmailFunc != nil {
		return m.SendOTPEmailFunc(ctx, email, code, expiresAt)
	}
	m.SentTo = append(m.SentTo, email)
	return nil
}

// MockChallengeGenerator implements ChallengeGenerator with a fixed code
type MockChallengeGenerator struct {
	GenerateFunc func() (string, time.Time, error)
}

func (m *MockChallengeGenerator) Generate() (string, time.Time, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return "123456", time.Now().Add(10 * time.Minute), nil
}

// MockSessionIssuer implements SessionIssuer for testing
type MockSessionIssuer struct {
	IssueFunc func(accountID, email, role string) (string, error)
}

func (m *MockSessionIssuer) Issue(accountID, email, role string) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(accountID, email, role)
	}
	return "session_token_" + accountID, nil
}

// NewTestAccount creates a verified account for testing
func NewTestAccount(id, email, name string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:        id,
		Email:     email,
		Name:      name,
		Phone:     "5550100",
		Role:      models.RoleEmployee,
		Verified:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestAccountWithPassword creates a verified account with a stored hash
func NewTestAccountWithPassword(id, email, name, passwordHash string) *models.Account {
	account := NewTestAccount(id, email, name)
	account.PasswordHash = passwordHash
	return account
}

// NewTestAccountUnverified creates an account with a pending challenge
func NewTestAccountUnverified(id, email, name, code string, expiresAt time.Time) *models.Account {
	account := NewTestAccount(id, email, name)
	account.Verified = false
	account.Challenge = &models.Challenge{
		Code:      code,
		ExpiresAt: expiresAt,
	}
	return account
}

// NewTestAdminAccount creates a verified admin account
func NewTestAdminAccount(id, email, name string) *models.Account {
	account := NewTestAccount(id, email, name)
	account.Role = models.RoleAdmin
	return account
}
