package services

import (
	"errors"
	"testing"
	"time"

	"sitesafe-api/models"
	"sitesafe-api/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var healthNow = time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)

func defaultBank(t *testing.T) *QuestionBank {
	t.Helper()
	bank, err := LoadQuestionBank("")
	require.NoError(t, err)
	return bank
}

func TestHealthStatusOf(t *testing.T) {
	never := healthStatusOf(nil, healthNow, 7)
	assert.Equal(t, utils.DueNow, never.Status)
	assert.Nil(t, never.LastSubmittedAt)

	recent := &models.HealthQuestionnaire{SubmittedAt: healthNow.AddDate(0, 0, -10), NextDueAt: healthNow.AddDate(0, 0, 80), Flagged: true}
	st := healthStatusOf(recent, healthNow, 7)
	assert.Equal(t, utils.DueCurrent, st.Status)
	assert.True(t, st.Flagged)
	require.NotNil(t, st.LastSubmittedAt)

	soon := &models.HealthQuestionnaire{SubmittedAt: healthNow.AddDate(0, 0, -85), NextDueAt: healthNow.AddDate(0, 0, 5)}
	assert.Equal(t, utils.DueSoon, healthStatusOf(soon, healthNow, 7).Status)

	today := &models.HealthQuestionnaire{SubmittedAt: healthNow.AddDate(0, 0, -90), NextDueAt: healthNow}
	assert.Equal(t, utils.DueNow, healthStatusOf(today, healthNow, 7).Status)
}

func TestSubmitRequiresDeclaration(t *testing.T) {
	useSettings(t, nil)
	db, mock := newMockDB(t)

	answers := allClear()
	delete(answers, "working_at_height")
	_, err := NewHealthService(db, defaultBank(t)).Submit(11, HealthSubmission{Answers: answers}, healthNow)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "declaration")
	assert.Contains(t, verr.Fields, "answers.working_at_height")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitSchedulesNextQuestionnaire(t *testing.T) {
	useSettings(t, func(cs *models.CompanySettings) { cs.HealthIntervalDays = 60 })
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO `health_questionnaires`").WillReturnResult(sqlmock.NewResult(8, 1))

	hq, err := NewHealthService(db, defaultBank(t)).Submit(11, HealthSubmission{Answers: allClear(), Declaration: true}, healthNow)
	require.NoError(t, err)
	assert.Equal(t, 8, hq.QuestionnaireID)
	assert.False(t, hq.Flagged)
	assert.Equal(t, "2026.1", hq.Version)
	assert.Equal(t, healthNow.AddDate(0, 0, 60), hq.NextDueAt)
	assert.JSONEq(t, `[]`, string(hq.FlagReasons))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlaggedSubmissionNotifiesStaff(t *testing.T) {
	useSettings(t, nil)
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO `health_questionnaires`").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE delete_at IS NULL AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(11, "pat@example.com", "x", "worker", "Pat", "Doyle", true))
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE delete_at IS NULL AND .*user_type").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "sue@example.com", "x", "staff", "Sue", "Grant", true).
			AddRow(2, "raj@example.com", "x", "staff", "Raj", "Patel", true))
	mock.ExpectExec("INSERT INTO `notifications`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `notifications`").WillReturnResult(sqlmock.NewResult(2, 1))

	answers := allClear()
	answers["medication_drowsy"] = "yes"
	hq, err := NewHealthService(db, defaultBank(t)).Submit(11, HealthSubmission{Answers: answers, Declaration: true}, healthNow)
	require.NoError(t, err)
	assert.True(t, hq.Flagged)
	assert.JSONEq(t, `["medication_drowsy"]`, string(hq.FlagReasons))
	assert.Equal(t, healthNow.AddDate(0, 0, 90), hq.NextDueAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
