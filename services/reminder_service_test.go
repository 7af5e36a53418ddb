package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sitesafe-api/models"
	"sitesafe-api/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  map[string]string
	fails map[string]bool
}

func (m *recordingMailer) Send(to []string, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails[to[0]] {
		return errors.New("smtp: mailbox unavailable")
	}
	if m.sent == nil {
		m.sent = map[string]string{}
	}
	m.sent[to[0]] = html
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var reminderNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func expectCollect(mock sqlmock.Sqlmock, subs, rams *sqlmock.Rows) {
	mock.ExpectQuery("SELECT \\* FROM `subcontractors` WHERE delete_at IS NULL AND is_active = \\?").WillReturnRows(subs)
	mock.ExpectQuery("SELECT .* FROM `rams`").WillReturnRows(rams)
	mock.ExpectQuery("FROM `risk_assessments`").
		WillReturnRows(sqlmock.NewRows([]string{"risk_assessment_id", "reference", "title", "review_date"}))
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE delete_at IS NULL AND .*user_type = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns))
}

func subRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"subcontractor_id", "company_name", "public_liability_expiry",
		"employers_liability_expiry", "professional_indemnity_expiry", "is_active"})
}

func ramsRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"rams_id", "reference", "title", "review_date"})
}

func TestCollectSortsByDueDate(t *testing.T) {
	useSettings(t, nil)
	db, mock := newMockDB(t)
	expectCollect(mock,
		subRows().AddRow(5, "Acme Scaffolding", date(2026, 3, 1), date(2026, 9, 1), nil, true),
		ramsRows().
			AddRow(1, "RAMS-2026-0001", "Roof strip", date(2026, 3, 15)).
			AddRow(2, "RAMS-2025-0040", "Groundworks", date(2026, 1, 1)))

	reminders, err := NewReminderService(db, nil).Collect(reminderNow)
	require.NoError(t, err)
	require.Len(t, reminders, 3)

	assert.Equal(t, ReminderRamsReview, reminders[0].Kind)
	assert.Equal(t, utils.ReviewOverdue, reminders[0].Status)

	assert.Equal(t, ReminderInsurance, reminders[1].Kind)
	assert.Equal(t, utils.ExpiryExpired, reminders[1].Status)
	assert.Equal(t, "5/public_liability", reminders[1].SubjectID)
	assert.Equal(t, "insurance:subcontractor:5/public_liability:expired:2026-03-01", reminders[1].DedupeKey())

	assert.Equal(t, utils.ReviewDueSoon, reminders[2].Status)
	require.NotNil(t, reminders[2].DaysRemaining)
	assert.Equal(t, 5, *reminders[2].DaysRemaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDryRunWritesNothing(t *testing.T) {
	useSettings(t, nil)
	db, mock := newMockDB(t)
	expectCollect(mock, subRows(), ramsRows().AddRow(1, "RAMS-2026-0001", "Roof strip", date(2026, 3, 15)))

	sum, err := NewReminderService(db, &recordingMailer{}).Run(context.Background(), reminderNow, true)
	require.NoError(t, err)
	assert.True(t, sum.DryRun)
	assert.Equal(t, 1, sum.Collected)
	assert.Zero(t, sum.StaffNotified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunNotifiesAndMailsDigest(t *testing.T) {
	useSettings(t, func(cs *models.CompanySettings) {
		cs.CompanyName = "Hartley Build"
		cs.ReminderRecipients = "ops@hartley.example, broken@hartley.example"
	})
	db, mock := newMockDB(t)
	expectCollect(mock, subRows(), ramsRows().AddRow(1, "RAMS-2026-0001", "Roof strip", date(2026, 3, 15)))
	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "sue@hartley.example", "x", "staff", "Sue", "Grant", true))
	mock.ExpectExec("INSERT INTO `notifications`").WillReturnResult(sqlmock.NewResult(1, 1))

	mailer := &recordingMailer{fails: map[string]bool{"broken@hartley.example": true}}
	sum, err := NewReminderService(db, mailer).Run(context.Background(), reminderNow, false)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.New)
	assert.Equal(t, 1, sum.StaffNotified)
	assert.Equal(t, 1, sum.Emailed)
	assert.Equal(t, 1, sum.EmailFailures)

	html := mailer.sent["ops@hartley.example"]
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "RAMS-2026-0001 Roof strip")
	assert.Contains(t, html, "Hartley Build")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSkipsDigestWhenAlreadyNotified(t *testing.T) {
	useSettings(t, func(cs *models.CompanySettings) { cs.ReminderRecipients = "ops@hartley.example" })
	db, mock := newMockDB(t)
	expectCollect(mock, subRows(), ramsRows().AddRow(1, "RAMS-2026-0001", "Roof strip", date(2026, 3, 15)))
	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "sue@hartley.example", "x", "staff", "Sue", "Grant", true))
	mock.ExpectExec("INSERT INTO `notifications`").WillReturnResult(sqlmock.NewResult(0, 0))

	mailer := &recordingMailer{}
	sum, err := NewReminderService(db, mailer).Run(context.Background(), reminderNow, false)
	require.NoError(t, err)
	assert.Zero(t, sum.New)
	assert.Empty(t, mailer.sent)
}

func TestDigestMarkdownEscapesCells(t *testing.T) {
	due := date(2026, 4, 2)
	md := DigestMarkdown("Hartley | Build", []Reminder{{
		Kind:        ReminderCSCS,
		Status:      utils.ExpiryExpiring,
		SubjectName: "Pat | Doyle",
		Detail:      "CSCS card expires\n02/04/2026",
		DueDate:     &due,
	}}, reminderNow)

	assert.Contains(t, md, "### CSCS cards")
	assert.Contains(t, md, `Pat \| Doyle`)
	assert.Equal(t, 1, strings.Count(md, "| Pat"))
	assert.NotContains(t, md, "Health questionnaires")
}
