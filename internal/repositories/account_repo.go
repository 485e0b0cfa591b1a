package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mlowery/crewdesk/internal/database"
	"github.com/mlowery/crewdesk/internal/models"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

const accountColumns = "id, email, name, phone, password_hash, role, verified, otp_code, otp_expires_at, created_at, updated_at"

// rowScanner interface for scanning account rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAccountRow handles nullable challenge fields and populates an Account from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var otpCode *string
	var otpExpiresAt *time.Time

	err := scanner.Scan(
		&account.ID, &account.Email, &account.Name, &account.Phone,
		&account.PasswordHash, &account.Role, &account.Verified,
		&otpCode, &otpExpiresAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if otpCode != nil && otpExpiresAt != nil {
		account.Challenge = &models.Challenge{
			Code:      *otpCode,
			ExpiresAt: *otpExpiresAt,
		}
	}

	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

// Create inserts a new account. The unique index on email is the final
// arbiter for concurrent registrations; a violation surfaces as ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if account.Role == "" {
		account.Role = models.RoleEmployee
	}

	var otpCode *string
	var otpExpiresAt *time.Time
	if account.Challenge != nil {
		otpCode = &account.Challenge.Code
		otpExpiresAt = &account.Challenge.ExpiresAt
	}

	query := `
		INSERT INTO accounts (id, email, name, phone, password_hash, role, verified, otp_code, otp_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, account.Name, account.Phone,
		account.PasswordHash, account.Role, account.Verified,
		otpCode, otpExpiresAt, account.CreatedAt, account.UpdatedAt,
	))
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SetChallenge replaces any pending challenge with a fresh code and expiry.
func (r *AccountRepository) SetChallenge(ctx context.Context, id, code string, expiresAt time.Time) error {
	query := `
		UPDATE accounts SET otp_code = $1, otp_expires_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, code, expiresAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// MarkVerified sets verified=true and clears the challenge in one statement,
// so a verified account never retains a redeemable code.
func (r *AccountRepository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE accounts SET verified = TRUE, otp_code = NULL, otp_expires_at = NULL, updated_at = $1
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// UpdatePasswordHash replaces only the stored secret hash.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE accounts SET password_hash = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// UpdateProfile replaces the mutable public fields. The unique index
// catches email collisions that slip past the service-level check.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id, name, email, phone string) (*models.Account, error) {
	query := `
		UPDATE accounts SET name = $1, email = $2, phone = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query, name, email, phone, time.Now(), id))
}

// DeleteExpiredUnverified removes unverified accounts whose challenge
// expired before the cutoff. Compensates for registrations that crashed
// between create and rollback.
func (r *AccountRepository) DeleteExpiredUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM accounts
		WHERE verified = FALSE AND otp_expires_at IS NOT NULL AND otp_expires_at < $1
	`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired unverified accounts: %w", err)
	}

	return result.RowsAffected(), nil
}
