package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
	"github.com/k-chan22/DeteXTB-System/internal/repository"
)

func newUserRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "password", "email", "role",
		"first_name", "middle_name", "last_name",
		"failed_attempts", "lock_until", "last_active",
	})
}

func TestDirectoryRepository_FindByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	lastActive := time.Date(2025, 10, 30, 8, 15, 0, 0, time.UTC)
	lockUntil := lastActive.Add(5 * time.Minute)

	rows := newUserRows().AddRow(
		"user-1", "nurse1", "plain-secret", "nurse1@clinic.example", domain.RoleReceptionist,
		"Ana", nil, "Reyes",
		2, &lockUntil, &lastActive,
	)

	mock.ExpectQuery(`SELECT id, username, password, email, role, first_name, middle_name, last_name, failed_attempts, lock_until, last_active FROM clinic\.users WHERE username = \$1`).
		WithArgs("nurse1").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "nurse1")
	if err != nil {
		t.Fatalf("FindByUsername returned error: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("expected id user-1, got %s", user.ID)
	}
	if user.FailedAttempts != 2 {
		t.Fatalf("expected 2 failed attempts, got %d", user.FailedAttempts)
	}
	if user.LockUntil == nil || !user.LockUntil.Equal(lockUntil) {
		t.Fatalf("expected lock until %v, got %v", lockUntil, user.LockUntil)
	}
	if user.MiddleName != "" {
		t.Fatalf("expected empty middle name for NULL column, got %q", user.MiddleName)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDirectoryRepository_FindByEmail_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	mock.ExpectQuery(`SELECT id, username, password, email, role, first_name, middle_name, last_name, failed_attempts, lock_until, last_active FROM clinic\.users WHERE email = \$1 LIMIT 1`).
		WithArgs("missing@x.com").
		WillReturnRows(newUserRows())

	if _, err := repo.FindByEmail(context.Background(), "missing@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDirectoryRepository_UpdateFailedAttempts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	mock.ExpectExec(`UPDATE clinic\.users SET failed_attempts = \$1 WHERE username = \$2`).
		WithArgs(3, "nurse1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateFailedAttempts(context.Background(), "nurse1", 3); err != nil {
		t.Fatalf("UpdateFailedAttempts returned error: %v", err)
	}

	mock.ExpectExec(`UPDATE clinic\.users SET failed_attempts = \$1 WHERE username = \$2`).
		WithArgs(0, "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateFailedAttempts(context.Background(), "ghost", 0); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDirectoryRepository_UpdateLockUntil_Clear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	mock.ExpectExec(`UPDATE clinic\.users SET lock_until = \$1 WHERE username = \$2`).
		WithArgs(nil, "nurse1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateLockUntil(context.Background(), "nurse1", nil); err != nil {
		t.Fatalf("UpdateLockUntil returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDirectoryRepository_UpdatePasswordSecret(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	mock.ExpectExec(`UPDATE clinic\.users SET password = \$1 WHERE email = \$2`).
		WithArgs("newsecret123", "nurse1@clinic.example").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdatePasswordSecret(context.Background(), "nurse1@clinic.example", "newsecret123"); err != nil {
		t.Fatalf("UpdatePasswordSecret returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
