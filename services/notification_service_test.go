package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyCountsOnlyNewRows(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO `notifications`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(31, 1))
	// second user already holds the same dedupe key
	mock.ExpectExec("INSERT INTO `notifications`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := NewNotificationService(db).Notify([]int{1, 2}, Message{
		Title:     "Insurance expired",
		Body:      "Acme Scaffolding: public liability expired",
		DedupeKey: "insurance:subcontractor:5/public_liability:expired:2026-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadOfSomeoneElsesNotification(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE `notifications` SET .* WHERE notification_id = \\? AND user_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewNotificationService(db).MarkRead(9, 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnreadCount(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `notifications` WHERE user_id = \\? AND is_read = \\?").
		WithArgs(9, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := NewNotificationService(db).UnreadCount(9)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
