package services

import (
	"testing"
	"time"

	"sitesafe-api/models"
	"sitesafe-api/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dashNow = time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)

func countRows(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestDashboardFor(t *testing.T) {
	d, ok := DashboardFor(&models.User{UserType: models.UserTypeStaff})
	require.True(t, ok)
	assert.Equal(t, "/staff", d.Home)
	assert.Contains(t, d.Modules, "reminders")

	d, ok = DashboardFor(&models.User{UserType: models.UserTypeWorker})
	require.True(t, ok)
	assert.Equal(t, "/worker", d.Home)
	assert.NotContains(t, d.Modules, "settings")

	_, ok = DashboardFor(&models.User{UserType: "contractor"})
	assert.False(t, ok)
}

func TestStaffDashboardCounts(t *testing.T) {
	useSettings(t, nil)
	db, mock := newMockDB(t)

	far := dashNow.AddDate(1, 0, 0)
	mock.ExpectQuery("SELECT \\* FROM `subcontractors` WHERE delete_at IS NULL AND is_active = \\? ORDER BY company_name").
		WillReturnRows(subRows().
			AddRow(1, "Apex Roofing", nil, nil, nil, true).
			AddRow(2, "Brick & Co", far, far, far, true).
			AddRow(3, "Castle Scaffolding", dashNow.AddDate(0, 0, 5), far, nil, true))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `rams` WHERE delete_at IS NULL AND status = \\?").
		WithArgs(models.RamsStatusDraft).WillReturnRows(countRows(2))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `rams` WHERE delete_at IS NULL AND status = \\?").
		WithArgs(models.RamsStatusSubmitted).WillReturnRows(countRows(1))
	expectCollect(mock, subRows(), ramsRows().
		AddRow(5, "RAMS-2026-0005", "Roof strip", dashNow.AddDate(0, 0, -1)).
		AddRow(6, "RAMS-2026-0006", "Groundworks", far))
	mock.ExpectQuery("SELECT COUNT\\(DISTINCT\\(`worker_id`\\)\\) FROM `site_logs` WHERE check_out_at IS NULL").
		WillReturnRows(countRows(7))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `health_questionnaires` WHERE flagged = \\? AND reviewed_at IS NULL").
		WillReturnRows(countRows(1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `notifications` WHERE user_id = \\? AND is_read = \\?").
		WithArgs(1, false).WillReturnRows(countRows(3))

	sum, err := NewDashboardService(db, nil).Staff(1, dashNow)
	require.NoError(t, err)
	assert.Equal(t, &StaffSummary{
		Subcontractors:        3,
		InsuranceExpired:      1,
		InsuranceExpiring:     1,
		RamsDrafts:            2,
		RamsAwaitingApproval:  1,
		RamsReviewDue:         1,
		WorkersOnSite:         7,
		FlaggedQuestionnaires: 1,
		UnreadNotifications:   3,
	}, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerDashboardCounts(t *testing.T) {
	useSettings(t, nil)
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM `health_questionnaires` WHERE worker_id = \\? ORDER BY submitted_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{"questionnaire_id", "worker_id", "submitted_at", "next_due_at"}).
			AddRow(8, 11, dashNow.AddDate(0, 0, -87), dashNow.AddDate(0, 0, 3)))
	mock.ExpectQuery("SELECT \\* FROM `site_logs` WHERE worker_id = \\? AND check_out_at IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"site_log_id", "site_id", "worker_id", "check_in_at"}).
			AddRow(40, raSite, 11, dashNow.Add(-time.Hour)))
	mock.ExpectQuery("SELECT \\* FROM `sites` WHERE `sites`.`site_id` = \\?").
		WillReturnRows(sqlmock.NewRows(siteColumns).AddRow(raSite, "Kirkstall Road", "12 Kirkstall Road, Leeds", "LS3 1LH", true))
	mock.ExpectQuery("FROM `risk_assessments` WHERE delete_at IS NULL AND status = \\? AND site_id IN \\(SELECT DISTINCT `site_id` FROM `site_logs` WHERE worker_id = \\?\\)").
		WillReturnRows(sqlmock.NewRows(raColumns).
			AddRow(6, "RA-2026-0006", "Scaffold erection", raSite, "published", 5, `{}`, `[1,2,3,4,5]`).
			AddRow(7, "RA-2026-0007", "Hot works", raSite, "published", 5, `{}`, `[1,2,3,4,5]`))
	mock.ExpectQuery("SELECT `risk_assessment_id` FROM `risk_assessment_signatures` WHERE worker_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"risk_assessment_id"}).AddRow(6))
	mock.ExpectQuery("SELECT \\* FROM `worker_profiles` WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "cscs_expiry"}).AddRow(11, dashNow.AddDate(0, 0, -2)))
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE `users`.`user_id` = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(11, "pat@example.com", "x", "worker", "Pat", "Doyle", true))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `notifications` WHERE user_id = \\? AND is_read = \\?").
		WithArgs(11, false).WillReturnRows(countRows(4))

	card, err := NewDashboardService(db, nil).Worker(11, dashNow)
	require.NoError(t, err)
	assert.Equal(t, utils.DueSoon, card.Health.Status)
	require.NotNil(t, card.CurrentCheckin)
	assert.Equal(t, "Kirkstall Road", card.CurrentCheckin.Site.Name)
	assert.Equal(t, 1, card.PendingSignatures)
	assert.Equal(t, utils.ExpiryExpired, card.CSCS.Status)
	assert.Equal(t, int64(4), card.UnreadNotifications)
	assert.NoError(t, mock.ExpectationsWereMet())
}
