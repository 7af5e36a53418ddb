package services

import (
	"fmt"
	"strconv"
	"strings"

	"sitesafe-api/models"
	"sitesafe-api/wizard"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stepPayloads converts the stored JSON buffer into the shape the wizard
// checks expect.
func stepPayloads(state *models.WizardState) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(state.Steps))
	for k := range state.Steps {
		if p := state.StepPayload(k); p != nil {
			out[k] = p
		}
	}
	return out
}

// applyStep validates payload for step n and records it in state. Later
// completed steps that no longer pass their cross-step checks are reopened.
func applyStep(def *wizard.Definition, state *models.WizardState, n int, payload map[string]interface{}) (wizard.Step, error) {
	step, ok := def.Step(n)
	if !ok {
		return wizard.Step{}, ErrNotFound
	}
	if !def.CanEdit(n, state.Completed()) {
		return wizard.Step{}, fmt.Errorf("%w: step %d", ErrStepLocked, n)
	}
	if errs := def.ValidateStep(n, payload, stepPayloads(state)); errs != nil {
		return wizard.Step{}, &ValidationError{Fields: errs}
	}

	state.SetStepPayload(step.Key, payload)
	state.MarkCompleted(n)
	next := def.NextStep(n)
	if next > state.CurrentStep {
		state.CurrentStep = next
	}
	for _, m := range def.Stale(n, state.Completed(), stepPayloads(state)) {
		state.UnmarkCompleted(m)
		if m < state.CurrentStep {
			state.CurrentStep = m
		}
	}
	return step, nil
}

// WizardProgress summarises a record's position in its wizard.
type WizardProgress struct {
	CurrentStep int   `json:"current_step"`
	TotalSteps  int   `json:"total_steps"`
	Completed   []int `json:"completed_steps"`
	Missing     []int `json:"missing_steps"`
	IsComplete  bool  `json:"is_complete"`
}

func progressOf(def *wizard.Definition, state *models.WizardState) WizardProgress {
	done := state.Completed()
	if done == nil {
		done = []int{}
	}
	return WizardProgress{
		CurrentStep: state.CurrentStep,
		TotalSteps:  def.Len(),
		Completed:   done,
		Missing:     def.Missing(done),
		IsComplete:  def.IsComplete(done),
	}
}

// nextReference allocates PREFIX-YYYY-NNNN inside tx, locking the latest
// reference of the year so concurrent creates do not collide.
func nextReference(tx *gorm.DB, model interface{}, prefix string, year int) (string, error) {
	stem := fmt.Sprintf("%s-%d-", prefix, year)
	var refs []string
	err := tx.Model(model).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference LIKE ?", stem+"%").
		Order("LENGTH(reference) DESC, reference DESC").
		Limit(1).
		Pluck("reference", &refs).Error
	if err != nil {
		return "", fmt.Errorf("allocate reference: %w", err)
	}
	seq := 1
	if len(refs) > 0 {
		if n, err := strconv.Atoi(strings.TrimPrefix(refs[0], stem)); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", stem, seq), nil
}

// checkSaved revalidates every completed step before a record leaves draft.
func checkSaved(def *wizard.Definition, state *models.WizardState) error {
	if bad := def.Invalid(state.Completed(), stepPayloads(state)); len(bad) > 0 {
		return fmt.Errorf("%w: steps %v must be saved again", ErrIncomplete, bad)
	}
	return nil
}
