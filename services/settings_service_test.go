package services

import (
	"errors"
	"testing"

	"sitesafe-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() SettingsInput {
	return SettingsInput{
		CompanyName:          "Hartley Build Ltd",
		Email:                "office@hartley.example",
		Phone:                "0113 496 0000",
		HealthIntervalDays:   90,
		HealthDueSoonDays:    7,
		InsuranceWarningDays: 30,
		ReviewWarningDays:    14,
		CSCSWarningDays:      30,
		RequireHealthCheck:   true,
		ReminderRecipients:   " ops@hartley.example , ,hse@hartley.example",
	}
}

func TestSettingsGetFallsBackToDefaults(t *testing.T) {
	ClearSettingsCache()
	t.Cleanup(ClearSettingsCache)
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `company_settings` WHERE settings_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"settings_id"}))

	svc := NewSettingsService(db, nil)
	cs, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCompanySettings(), cs)

	// served from cache the second time
	_, err = svc.Get()
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, validSettings().validate())

	in := validSettings()
	in.CompanyName = " "
	in.Email = "office"
	in.HealthDueSoonDays = 90
	in.CSCSWarningDays = 0
	in.ReminderRecipients = "ops@hartley.example, nobody"

	var verr *ValidationError
	require.True(t, errors.As(in.validate(), &verr))
	assert.Contains(t, verr.Fields, "company_name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "health_due_soon_days")
	assert.Contains(t, verr.Fields, "cscs_warning_days")
	assert.Equal(t, "Invalid e-mail address: nobody", verr.Fields["reminder_recipients"])
}

func TestSettingsUpdateNormalisesRecipients(t *testing.T) {
	useSettings(t, nil)
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO `company_settings`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 2))

	cs, err := NewSettingsService(db, nil).Update(validSettings(), 4)
	require.NoError(t, err)
	assert.Equal(t, "ops@hartley.example,hse@hartley.example", cs.ReminderRecipients)
	assert.Equal(t, "01134960000", cs.Phone)
	require.NotNil(t, cs.UpdatedBy)
	assert.Equal(t, 4, *cs.UpdatedBy)

	cached, err := NewSettingsService(db, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, "Hartley Build Ltd", cached.CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
