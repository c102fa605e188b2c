package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vaultdrive/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))

	user := &domain.User{Username: "alice", Email: "alice@example.com"}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID != 1 {
		t.Errorf("expected id 1, got %d", user.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com").
		WillReturnError(&pq.Error{Code: "23505"})

	user := &domain.User{Username: "alice", Email: "alice@example.com"}
	err := repo.Create(context.Background(), user)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestUserRepositoryGetByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM users WHERE email`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "created_at"}))

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepositoryGetUsernames(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT id, username FROM users WHERE id = ANY`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).
			AddRow(int64(1), "alice").
			AddRow(int64(2), "bob"))

	names, err := repo.GetUsernames(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("GetUsernames: %v", err)
	}
	if names[1] != "alice" || names[2] != "bob" {
		t.Errorf("unexpected names map: %v", names)
	}
}

func TestUserRepositoryGetUsernamesEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewUserRepository(db)

	names, err := repo.GetUsernames(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetUsernames: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty map, got %v", names)
	}
}
