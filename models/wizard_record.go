package models

import (
	"encoding/json"
	"sort"

	"gorm.io/datatypes"
)

// WizardState is the step-indexed form buffer shared by RAMS and risk
// assessments. Steps maps a step key to the last valid payload for that step.
type WizardState struct {
	CurrentStep    int               `gorm:"column:current_step" json:"current_step"`
	Steps          datatypes.JSONMap `gorm:"column:steps" json:"steps"`
	CompletedSteps datatypes.JSON    `gorm:"column:completed_steps" json:"completed_steps"`
}

// Completed decodes the completed step numbers in ascending order.
func (w *WizardState) Completed() []int {
	var steps []int
	if len(w.CompletedSteps) == 0 {
		return steps
	}
	if err := json.Unmarshal(w.CompletedSteps, &steps); err != nil {
		return nil
	}
	sort.Ints(steps)
	return steps
}

// MarkCompleted records step n as complete.
func (w *WizardState) MarkCompleted(n int) {
	done := w.Completed()
	for _, s := range done {
		if s == n {
			return
		}
	}
	done = append(done, n)
	sort.Ints(done)
	raw, _ := json.Marshal(done)
	w.CompletedSteps = datatypes.JSON(raw)
}

// StepPayload returns the stored payload for a step key.
func (w *WizardState) StepPayload(key string) map[string]interface{} {
	if w.Steps == nil {
		return nil
	}
	if v, ok := w.Steps[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// SetStepPayload stores the payload for a step key.
func (w *WizardState) SetStepPayload(key string, payload map[string]interface{}) {
	if w.Steps == nil {
		w.Steps = datatypes.JSONMap{}
	}
	w.Steps[key] = payload
}

// UnmarkCompleted drops step n from the completed set.
func (w *WizardState) UnmarkCompleted(n int) {
	done := w.Completed()
	kept := make([]int, 0, len(done))
	for _, s := range done {
		if s != n {
			kept = append(kept, s)
		}
	}
	raw, _ := json.Marshal(kept)
	w.CompletedSteps = datatypes.JSON(raw)
}
