package services

import (
	"errors"
	"testing"

	"sitesafe-api/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userColumns = []string{"user_id", "email", "password", "user_type", "first_name", "last_name", "is_active"}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticateStampsLastLogin(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE delete_at IS NULL AND email = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "ann@example.co.uk", hashed(t, "correct horse"), "staff", "Ann", "Lee", true))
	mock.ExpectExec("UPDATE `users` SET `last_login_at`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := NewUserService(db).Authenticate("  Ann@Example.co.uk ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, 7, user.UserID)
	assert.NotNil(t, user.LastLoginAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticateRejections(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows(userColumns))

		_, err := NewUserService(db).Authenticate("nobody@example.com", "whatever1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `users`").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(3, "bob@example.com", hashed(t, "right-password"), "worker", "Bob", "Hall", true))

		_, err := NewUserService(db).Authenticate("bob@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `users`").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(3, "bob@example.com", hashed(t, "right-password"), "worker", "Bob", "Hall", false))

		_, err := NewUserService(db).Authenticate("bob@example.com", "right-password")
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestCreateUserValidatesInput(t *testing.T) {
	db, _ := newMockDB(t)

	_, err := NewUserService(db).Create(NewUserInput{Email: "not-an-email", Password: "short", UserType: "admin"})
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"email", "password", "user_type", "first_name", "last_name"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE email = \\?").
		WithArgs("ann@example.co.uk").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := NewUserService(db).Create(NewUserInput{
		Email: "ann@example.co.uk", Password: "long enough", UserType: "staff", FirstName: "Ann", LastName: "Lee",
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWorkerAddsProfile(t *testing.T) {
	prev := config.Current.Auth.BcryptCostLevel
	config.Current.Auth.BcryptCostLevel = bcrypt.MinCost
	t.Cleanup(func() { config.Current.Auth.BcryptCostLevel = prev })

	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec("INSERT INTO `worker_profiles`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user, err := NewUserService(db).RegisterWorker(NewUserInput{
		Email: "Sam@Example.com", Password: "long enough", UserType: "staff", FirstName: " Sam ", LastName: "Ford",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, user.UserID)
	assert.Equal(t, "worker", user.UserType)
	assert.Equal(t, "sam@example.com", user.Email)
	assert.Equal(t, "Sam", user.FirstName)
	assert.True(t, CheckPasswordHash("long enough", user.Password))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveRefusesSelfDeactivation(t *testing.T) {
	db, mock := newMockDB(t)

	_, err := NewUserService(db).SetActive(4, false, 4)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
