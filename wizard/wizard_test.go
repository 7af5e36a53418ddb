package wizard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestDefinitionsAreNumberedInOrder(t *testing.T) {
	for _, def := range []*Definition{Rams, RiskAssessment} {
		keys := map[string]bool{}
		for i, s := range def.Steps {
			assert.Equal(t, i+1, s.Number, "%s step %s", def.Name, s.Key)
			assert.False(t, keys[s.Key], "duplicate key %s", s.Key)
			keys[s.Key] = true
		}
	}
	assert.Equal(t, 22, Rams.Len())
	assert.Equal(t, 5, RiskAssessment.Len())
}

func TestCanEditGating(t *testing.T) {
	tests := []struct {
		name      string
		step      int
		completed []int
		want      bool
	}{
		{name: "first step always", step: 1, completed: nil, want: true},
		{name: "second needs first", step: 2, completed: nil, want: false},
		{name: "next after prefix", step: 3, completed: []int{1, 2}, want: true},
		{name: "revisit earlier step", step: 1, completed: []int{1, 2, 3}, want: true},
		{name: "gap blocks later steps", step: 4, completed: []int{1, 3}, want: false},
		{name: "step after gap is fillable", step: 2, completed: []int{1, 3}, want: true},
		{name: "out of range", step: 23, completed: []int{1}, want: false},
		{name: "zero", step: 0, completed: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rams.CanEdit(tt.step, tt.completed))
		})
	}
}

func TestIsCompleteAndMissing(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}
	assert.True(t, RiskAssessment.IsComplete(all))
	assert.False(t, RiskAssessment.IsComplete([]int{1, 2, 4, 5}))
	assert.Equal(t, []int{3}, RiskAssessment.Missing([]int{1, 2, 4, 5}))
	assert.Equal(t, 5, RiskAssessment.NextStep(5))
	assert.Equal(t, 3, RiskAssessment.NextStep(2))
}

func TestValidateStepRequiredAndKinds(t *testing.T) {
	errs := Rams.ValidateStep(3, payload(t, `{"prepared_by":"  ","position":"Site manager","prepared_on":"2026/01/01","revision":"A"}`), nil)
	require.NotNil(t, errs)
	assert.Contains(t, errs, "prepared_by")
	assert.Contains(t, errs, "prepared_on")
	assert.NotContains(t, errs, "position")

	assert.Nil(t, Rams.ValidateStep(3, payload(t, `{"prepared_by":"A. Smith","position":"Site manager","prepared_on":"2026-01-01","revision":"A"}`), nil))
}

func TestValidateStepDeclarationMustBeTrue(t *testing.T) {
	errs := Rams.ValidateStep(22, payload(t, `{"signed_by":"A. Smith","signed_on":"2026-01-01","declaration":false}`), nil)
	require.NotNil(t, errs)
	assert.Equal(t, "I confirm this RAMS is suitable and sufficient must be confirmed", errs["declaration"])
}

func TestValidateStepMultiSelectOptions(t *testing.T) {
	errs := Rams.ValidateStep(13, payload(t, `{"ppe":["hard_hat","jetpack"]}`), nil)
	require.NotNil(t, errs)
	assert.Equal(t, "PPE has an invalid choice", errs["ppe"])

	assert.Nil(t, Rams.ValidateStep(13, payload(t, `{"ppe":["hard_hat","hi_vis"]}`), nil))
}

func TestValidateStepNumberBounds(t *testing.T) {
	errs := Rams.ValidateStep(5, payload(t, `{"start_time":"08:00","finish_time":"17:00","start_date":"2026-02-01","duration_days":0}`), nil)
	require.NotNil(t, errs)
	assert.Equal(t, "Duration (days) must be at least 1", errs["duration_days"])
}

func TestValidateStepUnknown(t *testing.T) {
	errs := Rams.ValidateStep(40, map[string]interface{}{}, nil)
	assert.Contains(t, errs, "step")
}

func TestRiskHazardsNestedValidation(t *testing.T) {
	errs := RiskAssessment.ValidateStep(2, payload(t, `{"hazards":[{"hazard":"Falls","who_at_risk":"Operatives","likelihood":6,"severity":3},{"hazard":"","who_at_risk":"Public","likelihood":2,"severity":2}]}`), nil)
	require.NotNil(t, errs)
	assert.Equal(t, "Likelihood must be at most 5", errs["hazards.0.likelihood"])
	assert.Equal(t, "Hazard is required", errs["hazards.1.hazard"])
}

func TestRiskControlsCrossCheck(t *testing.T) {
	steps := map[string]map[string]interface{}{
		RiskStepHazards: payload(t, `{"hazards":[{"hazard":"Falls","who_at_risk":"Operatives","likelihood":4,"severity":5},{"hazard":"Dust","who_at_risk":"Operatives","likelihood":3,"severity":2}]}`),
	}

	ok := payload(t, `{"controls":[{"control_measures":"Edge protection","residual_likelihood":1,"residual_severity":5},{"control_measures":"Water suppression","residual_likelihood":1,"residual_severity":2}]}`)
	assert.Nil(t, RiskAssessment.ValidateStep(3, ok, steps))

	worse := payload(t, `{"controls":[{"control_measures":"Edge protection","residual_likelihood":1,"residual_severity":5},{"hazard_index":1,"control_measures":"Nothing","residual_likelihood":5,"residual_severity":5}]}`)
	errs := RiskAssessment.ValidateStep(3, worse, steps)
	require.NotNil(t, errs)
	assert.Equal(t, "Residual risk cannot exceed the initial risk", errs["controls.1"])

	missing := payload(t, `{"controls":[{"hazard_index":1,"control_measures":"Masks","residual_likelihood":1,"residual_severity":1}]}`)
	errs = RiskAssessment.ValidateStep(3, missing, steps)
	require.NotNil(t, errs)
	assert.Equal(t, "Hazard has no control measures", errs["hazards.0"])

	errs = RiskAssessment.ValidateStep(3, ok, nil)
	assert.Equal(t, "Hazards must be recorded before controls", errs["controls"])
}

func TestRiskBand(t *testing.T) {
	assert.Equal(t, BandLow, RiskBand(RiskRating(2, 3)))
	assert.Equal(t, BandMedium, RiskBand(RiskRating(2, 4)))
	assert.Equal(t, BandMedium, RiskBand(RiskRating(3, 4)))
	assert.Equal(t, BandHigh, RiskBand(RiskRating(3, 5)))
	assert.Equal(t, BandHigh, RiskBand(25))
}

func TestScoreHazards(t *testing.T) {
	steps := map[string]map[string]interface{}{
		RiskStepHazards:  payload(t, `{"hazards":[{"hazard":"Falls","who_at_risk":"Operatives","likelihood":4,"severity":5}]}`),
		RiskStepControls: payload(t, `{"controls":[{"control_measures":"Edge protection","residual_likelihood":1,"residual_severity":5}]}`),
	}
	rows := ScoreHazards(steps)
	require.Len(t, rows, 1)
	assert.Equal(t, 20, rows[0].Rating)
	assert.Equal(t, BandHigh, rows[0].Band)
	assert.Equal(t, 5, rows[0].ResidualRating)
	assert.Equal(t, BandLow, rows[0].ResidualBand)
	assert.Equal(t, "Edge protection", rows[0].ControlMeasures)
}

func TestStaleAndInvalidSteps(t *testing.T) {
	steps := map[string]map[string]interface{}{
		RiskStepHazards:  payload(t, `{"hazards":[{"hazard":"Noise","who_at_risk":"Operatives","likelihood":1,"severity":2}]}`),
		RiskStepControls: payload(t, `{"controls":[{"control_measures":"Ear defenders","residual_likelihood":2,"residual_severity":2}]}`),
	}
	completed := []int{1, 2, 3}

	assert.Equal(t, []int{3}, RiskAssessment.Stale(2, completed, steps))
	assert.Empty(t, RiskAssessment.Stale(3, completed, steps))
	// step 1 has no saved payload here, so it fails its required fields too
	assert.Equal(t, []int{1, 3}, RiskAssessment.Invalid(completed, steps))
}
