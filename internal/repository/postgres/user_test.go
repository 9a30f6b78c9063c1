package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	apperrors "github.com/curatedcode/toshi-sub000/pkg/errors"
)

var userColumns = []string{
	"id", "email", "first_name", "last_name", "password_hash", "role", "created_at", "updated_at",
}

func sampleUser() domain.User {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return domain.User{
		ID:           "user-1",
		Email:        "jordan@example.com",
		FirstName:    "Jordan",
		LastName:     "Doe",
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuv",
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userRow(u domain.User) []any {
	return []any{
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
	}
}

func TestUserRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewUserRepository(mock)

	u := sampleUser()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewUserRepository(mock)

	u := sampleUser()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), &u)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewUserRepository(mock)

	u := sampleUser()
	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs(u.ID).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(userRow(u)...))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.Role, got.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewUserRepository(mock)

	u := sampleUser()
	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs(u.Email).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(userRow(u)...))

	got, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM users").
		WithArgs("missing@example.com").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByEmail(context.Background(), "missing@example.com")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
