package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/tokenauth"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "name", "email", "password_hash", "is_active", "is_deleted", "created_at"}

const aliceID = "0b7e3f0e-33f1-4bb8-8a8f-8a0c2f3f8a11"

func TestUserGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(qUserByEmail).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(aliceID, "Alice", "alice@example.com", "$2a$10$hash", true, false, fixedNow))

	p, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, aliceID, p.ID)
	assert.Equal(t, "Alice", p.Name)
	assert.True(t, p.IsActive)
	assert.False(t, p.IsDeleted)
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(qUserByEmail).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, tokenauth.ErrUserNotFound)
}

func TestUserGetByIDRejectsNonUUIDWithoutQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	_, err := repo.GetUserByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, tokenauth.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIDDriverError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(qUserByID).
		WithArgs(aliceID).
		WillReturnError(errors.New("too many connections"))

	_, err := repo.GetUserByID(context.Background(), aliceID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, tokenauth.ErrUserNotFound)
	assert.Contains(t, err.Error(), "users.get_by_id")
}

func TestUserCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(qUserInsert).
		WithArgs(sqlmock.AnyArg(), "Alice", "alice@example.com", "$2a$10$hash").
		WillReturnRows(sqlmock.NewRows([]string{"is_active", "is_deleted", "created_at"}).
			AddRow(true, false, fixedNow))

	p, err := repo.CreateUser(context.Background(), tokenauth.CreateUserInput{
		Name:         " Alice ",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
	})
	require.NoError(t, err)
	assert.Len(t, p.ID, 36)
	assert.True(t, p.IsActive)
	assert.True(t, p.CreatedAt.Equal(fixedNow))
}

func TestUserCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(qUserInsert).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.CreateUser(context.Background(), tokenauth.CreateUserInput{
		Name: "Alice", Email: "alice@example.com", PasswordHash: "h",
	})
	require.ErrorIs(t, err, tokenauth.ErrProviderDuplicateIdentifier)
}
