package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/mlowery/crewdesk/internal/events"
	"github.com/mlowery/crewdesk/internal/models"
	"github.com/mlowery/crewdesk/pkg/auth"
	"github.com/mlowery/crewdesk/pkg/logger"
)

// emailPattern is the lightweight format check applied before any lookup
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Delete(ctx context.Context, id string) error
	SetChallenge(ctx context.Context, id, code string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id, name, email, phone string) (*models.Account, error)
}

// ChallengeGenerator produces one-time verification codes with an expiry
type ChallengeGenerator interface {
	Generate() (string, time.Time, error)
}

// SessionIssuer mints signed session tokens for authenticated accounts
type SessionIssuer interface {
	Issue(accountID, email, role string) (string, error)
}

// AccountService handles the account lifecycle: registration, email
// verification, login, password changes and profile edits.
type AccountService struct {
	repo        AccountRepository
	generator   ChallengeGenerator
	emailSender EmailSender
	issuer      SessionIssuer
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(repo AccountRepository, generator ChallengeGenerator, emailSender EmailSender, issuer SessionIssuer, broadcaster *events.Broadcaster, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:        repo,
		generator:   generator,
		emailSender: emailSender,
		issuer:      issuer,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// AccountResponse is the public projection of an account. It never carries
// the password hash or a pending verification code.
type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthResponse is returned on successful login
type AuthResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

func toAccountResponse(account *models.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Phone:     account.Phone,
		Role:      account.Role,
		Verified:  account.Verified,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

// Register creates an unverified account and emails it a verification code.
// If the email cannot be delivered the account is removed again, so the
// address stays free for a retry.
func (s *AccountService) Register(ctx context.Context, email, password, name, phone string) (*AccountResponse, error) {
	if email == "" || password == "" || name == "" || phone == "" {
		return nil, fmt.Errorf("%w: email, password, name and phone are required", models.ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", models.ErrValidation)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		s.logger.Info("registration rejected, email already in use",
			slog.String("email", logger.SanitizedEmail(email)))
		return nil, models.ErrConflict
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	code, expiresAt, err := s.generator.Generate()
	if err != nil {
		s.logger.Error("failed to generate verification code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account := &models.Account{
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: passwordHash,
		Verified:     false,
		Challenge: &models.Challenge{
			Code:      code,
			ExpiresAt: expiresAt,
		},
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.emailSender.SendOTPEmail(ctx, email, code, expiresAt); err != nil {
		// Roll the account back so the address is not left occupied by a
		// registration the user never heard about.
		if delErr := s.repo.Delete(ctx, created.ID); delErr != nil {
			s.logger.Error("failed to roll back account after delivery failure",
				slog.String("account_id", created.ID), slog.Any("error", delErr))
		}
		s.logger.Error("failed to deliver verification code",
			slog.String("email", logger.SanitizedEmail(email)), slog.Any("error", err))
		return nil, models.ErrDelivery
	}

	s.logger.Info("account registered, verification pending",
		slog.String("account_id", created.ID),
		slog.String("email", logger.SanitizedEmail(email)))

	resp := toAccountResponse(created)
	return &resp, nil
}

// VerifyOTP redeems a pending verification code. A correct, unexpired code
// marks the account verified and consumes the challenge.
func (s *AccountService) VerifyOTP(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and otp are required", models.ErrValidation)
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if account.Challenge == nil || account.Challenge.Code != code {
		s.logger.Info("verification code rejected",
			slog.String("account_id", account.ID))
		return models.ErrInvalidOTP
	}

	if account.Challenge.IsExpired(time.Now()) {
		return models.ErrOTPExpired
	}

	if err := s.repo.MarkVerified(ctx, account.ID); err != nil {
		s.logger.Error("failed to mark account verified",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("account verified", slog.String("account_id", account.ID))
	return nil
}

// ResendOTP replaces a pending challenge with a fresh code and emails it.
// The previous code stops working the moment the new one is stored.
func (s *AccountService) ResendOTP(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if account.Verified {
		return models.ErrAlreadyVerified
	}

	code, expiresAt, err := s.generator.Generate()
	if err != nil {
		s.logger.Error("failed to generate verification code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.SetChallenge(ctx, account.ID, code, expiresAt); err != nil {
		s.logger.Error("failed to store verification code",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.emailSender.SendOTPEmail(ctx, email, code, expiresAt); err != nil {
		s.logger.Error("failed to deliver verification code",
			slog.String("email", logger.SanitizedEmail(email)), slog.Any("error", err))
		return models.ErrDelivery
	}

	s.logger.Info("verification code resent", slog.String("account_id", account.ID))
	return nil
}

// Authenticate checks credentials for a verified account and issues a
// session token. Unverified accounts are refused before the password is
// compared, so a pending registration always sees the same answer.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*AuthResponse, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !account.Verified {
		s.logger.Info("login refused for unverified account",
			slog.String("account_id", account.ID))
		return nil, models.ErrNotVerified
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		s.logger.Info("login failed, bad credentials",
			slog.String("email", logger.SanitizedEmail(email)))
		return nil, models.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(account.ID, account.Email, account.Role)
	if err != nil {
		s.logger.Error("failed to issue session token",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account authenticated", slog.String("account_id", account.ID))

	return &AuthResponse{
		Token:   token,
		Account: toAccountResponse(account),
	}, nil
}

// ChangePassword replaces the account's password and announces the change
// to any listeners. The new secret is hashed exactly once.
func (s *AccountService) ChangePassword(ctx context.Context, email, newPassword string) error {
	if email == "" || newPassword == "" {
		return fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePasswordHash(ctx, account.ID, passwordHash); err != nil {
		s.logger.Error("failed to update password",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(events.Event{
			Type:      events.TypePasswordChanged,
			AccountID: account.ID,
		})
	}

	s.logger.Info("password changed", slog.String("account_id", account.ID))
	return nil
}

// UpdateProfile edits the account's public fields. Changing the email
// re-checks uniqueness but never resets the verified flag.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID, name, email, phone string) (*AccountResponse, error) {
	if name == "" || email == "" || phone == "" {
		return nil, fmt.Errorf("%w: name, email and phone are required", models.ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", models.ErrValidation)
	}

	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if email != account.Email {
		existing, err := s.repo.GetByEmail(ctx, email)
		if err == nil && existing != nil && existing.ID != account.ID {
			s.logger.Info("profile update rejected, email already in use",
				slog.String("account_id", account.ID))
			return nil, models.ErrConflict
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to check for existing account", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	updated, err := s.repo.UpdateProfile(ctx, account.ID, name, email, phone)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update profile",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("profile updated", slog.String("account_id", account.ID))

	resp := toAccountResponse(updated)
	return &resp, nil
}

// CheckEmailResettable reports whether an account exists for the address,
// used as the precondition for a password reset.
func (s *AccountService) CheckEmailResettable(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", models.ErrValidation)
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

// IsAdmin reports whether the account for the address holds the admin role.
func (s *AccountService) IsAdmin(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return false, models.ErrInternalServer
	}

	return account.Role == models.RoleAdmin, nil
}
