package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
	"github.com/k-chan22/DeteXTB-System/internal/core/port"
	"github.com/k-chan22/DeteXTB-System/internal/repository"
)

const usersTable = "clinic.users"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var userColumns = []string{
	"id",
	"username",
	"password",
	"email",
	"role",
	"first_name",
	"middle_name",
	"last_name",
	"failed_attempts",
	"lock_until",
	"last_active",
}

// DirectoryRepository implements port.Directory backed by PostgreSQL.
type DirectoryRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDirectoryRepository constructs a repository backed by any executor that
// satisfies pgExecutor, a pgxpool.Pool in production.
func NewDirectoryRepository(exec pgExecutor) *DirectoryRepository {
	return &DirectoryRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindByUsername resolves a record by exact, case-sensitive username.
func (r *DirectoryRepository) FindByUsername(ctx context.Context, username string) (*domain.UserRecord, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by username sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// FindByEmail resolves a record by its registered email address.
func (r *DirectoryRepository) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// UpdateFailedAttempts persists the failure counter for a username.
func (r *DirectoryRepository) UpdateFailedAttempts(ctx context.Context, username string, attempts int) error {
	stmt, args, err := r.builder.
		Update(usersTable).
		Set("failed_attempts", attempts).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update failed attempts sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update failed attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLockUntil sets or clears the lock expiry for a username.
func (r *DirectoryRepository) UpdateLockUntil(ctx context.Context, username string, lockUntil *time.Time) error {
	var value any
	if lockUntil != nil {
		value = lockUntil.UTC()
	}

	stmt, args, err := r.builder.
		Update(usersTable).
		Set("lock_until", value).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update lock until sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update lock until: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastActive stamps the last-active timestamp for a user id.
func (r *DirectoryRepository) UpdateLastActive(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.
		Update(usersTable).
		Set("last_active", at.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last active sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePasswordSecret overwrites the stored credential for the record
// matching the given email.
func (r *DirectoryRepository) UpdatePasswordSecret(ctx context.Context, email string, secret string) error {
	stmt, args, err := r.builder.
		Update(usersTable).
		Set("password", secret).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *DirectoryRepository) scanUser(row pgx.Row) (*domain.UserRecord, error) {
	var (
		user       domain.UserRecord
		middleName sql.NullString
		lockUntil  *time.Time
		lastActive *time.Time
	)

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordSecret,
		&user.Email,
		&user.Role,
		&user.FirstName,
		&middleName,
		&user.LastName,
		&user.FailedAttempts,
		&lockUntil,
		&lastActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if middleName.Valid {
		user.MiddleName = middleName.String
	}
	user.LockUntil = lockUntil
	if lastActive != nil {
		user.LastActive = *lastActive
	}

	return &user, nil
}

var _ port.Directory = (*DirectoryRepository)(nil)
