package services

import (
	"errors"
	"testing"
	"time"

	"sitesafe-api/models"
	"sitesafe-api/wizard"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ramsNow = time.Date(2026, time.February, 12, 10, 0, 0, 0, time.UTC)

func projectDetails() map[string]interface{} {
	return map[string]interface{}{
		"title":                "Roof strip and recover",
		"client":               "Leeds City Council",
		"principal_contractor": "Hartley Build Ltd",
	}
}

var ramsColumns = []string{"rams_id", "reference", "title", "status", "prepared_by", "current_step", "steps", "completed_steps"}

func TestCreateRamsAllocatesNextReference(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .*reference.* FROM `rams` WHERE reference LIKE \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"reference"}).AddRow("RAMS-2026-0007"))
	mock.ExpectExec("INSERT INTO `rams`").WillReturnResult(sqlmock.NewResult(15, 1))
	mock.ExpectCommit()

	r, err := NewRamsService(db).Create(projectDetails(), 4, ramsNow)
	require.NoError(t, err)
	assert.Equal(t, 15, r.RamsID)
	assert.Equal(t, "RAMS-2026-0008", r.Reference)
	assert.Equal(t, "Roof strip and recover", r.Title)
	assert.Equal(t, models.RamsStatusDraft, r.Status)
	assert.Equal(t, []int{1}, r.Completed())
	assert.Equal(t, 2, r.CurrentStep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRamsFirstOfTheYear(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM `rams`.*FOR UPDATE").WillReturnRows(sqlmock.NewRows([]string{"reference"}))
	mock.ExpectExec("INSERT INTO `rams`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r, err := NewRamsService(db).Create(projectDetails(), 4, ramsNow)
	require.NoError(t, err)
	assert.Equal(t, "RAMS-2026-0001", r.Reference)
}

func TestCreateRamsNeedsValidFirstStep(t *testing.T) {
	db, mock := newMockDB(t)

	p := projectDetails()
	delete(p, "client")
	_, err := NewRamsService(db).Create(p, 4, ramsNow)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "client")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStepGating(t *testing.T) {
	t.Run("later step locked", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `rams` WHERE delete_at IS NULL AND rams_id = \\?").
			WillReturnRows(sqlmock.NewRows(ramsColumns).AddRow(3, "RAMS-2026-0003", "Roof", "draft", 4, 2, `{}`, `[1]`))

		_, err := NewRamsService(db).SaveStep(3, 3, map[string]interface{}{}, ramsNow)
		assert.ErrorIs(t, err, ErrStepLocked)
	})

	t.Run("approved is read only", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `rams`").
			WillReturnRows(sqlmock.NewRows(ramsColumns).AddRow(3, "RAMS-2026-0003", "Roof", "approved", 4, 22, `{}`, `[1]`))

		_, err := NewRamsService(db).SaveStep(3, 1, projectDetails(), ramsNow)
		assert.ErrorIs(t, err, ErrNotEditable)
	})
}

func TestSubmitRequiresEveryStep(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `rams`").
		WillReturnRows(sqlmock.NewRows(ramsColumns).AddRow(3, "RAMS-2026-0003", "Roof", "draft", 4, 5, `{}`, `[1,2,3,4]`))

	_, err := NewRamsService(db).Submit(3, ramsNow)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestApproveLosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `rams`").
		WillReturnRows(sqlmock.NewRows(ramsColumns).AddRow(3, "RAMS-2026-0003", "Roof", "submitted", 4, 22, `{}`, `[]`))
	mock.ExpectExec("UPDATE `rams` SET .* WHERE rams_id = \\? AND status IN \\(\\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewRamsService(db).Approve(3, 1, ramsNow)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRejectNeedsReason(t *testing.T) {
	db, mock := newMockDB(t)

	_, err := NewRamsService(db).Reject(3, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStepAdvancesCurrentStep(t *testing.T) {
	state := &models.WizardState{CurrentStep: 1}
	_, err := applyStep(wizard.Rams, state, 1, projectDetails())
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentStep)

	// revisiting step 1 keeps the furthest position
	state.CurrentStep = 5
	_, err = applyStep(wizard.Rams, state, 1, projectDetails())
	require.NoError(t, err)
	assert.Equal(t, 5, state.CurrentStep)

	_, err = applyStep(wizard.Rams, state, 23, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	p := progressOf(wizard.Rams, state)
	assert.Equal(t, 22, p.TotalSteps)
	assert.Len(t, p.Missing, 21)
	assert.False(t, p.IsComplete)
}
