// Package wizard holds the step-indexed form definitions behind the RAMS and
// risk-assessment editors, and the rules deciding which step may be edited.
package wizard

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"sitesafe-api/utils"
)

// Field kinds.
const (
	KindText        = "text"
	KindTextarea    = "textarea"
	KindDate        = "date"
	KindEmail       = "email"
	KindSelect      = "select"
	KindMultiSelect = "multiselect"
	KindList        = "list"
	KindBool        = "bool"
	KindNumber      = "number"
	KindObjectList  = "object_list"
)

// Field describes one input of a step.
type Field struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
	MinItems int      `json:"min_items,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Item     []Field  `json:"item,omitempty"`
}

// CheckFunc runs cross-field rules after the per-field checks pass. steps holds
// the payloads already saved for the other steps.
type CheckFunc func(payload map[string]interface{}, steps map[string]map[string]interface{}) Errors

// Step is one page of a wizard.
type Step struct {
	Number int       `json:"number"`
	Key    string    `json:"key"`
	Title  string    `json:"title"`
	Fields []Field   `json:"fields"`
	Check  CheckFunc `json:"-"`
}

// Definition is an ordered list of steps, numbered from 1.
type Definition struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Errors maps a field path to a user-facing message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

func (e Errors) merge(prefix string, other Errors) {
	for k, v := range other {
		e[prefix+k] = v
	}
}

// Len is the number of steps.
func (d *Definition) Len() int { return len(d.Steps) }

// Step returns step n (1-based).
func (d *Definition) Step(n int) (Step, bool) {
	if n < 1 || n > len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[n-1], true
}

// StepByKey looks a step up by key.
func (d *Definition) StepByKey(key string) (Step, bool) {
	for _, s := range d.Steps {
		if s.Key == key {
			return s, true
		}
	}
	return Step{}, false
}

// ContiguousCompleted is the highest n such that steps 1..n are all complete.
func ContiguousCompleted(completed []int) int {
	done := make(map[int]bool, len(completed))
	for _, c := range completed {
		done[c] = true
	}
	n := 0
	for done[n+1] {
		n++
	}
	return n
}

// CanEdit reports whether step n may be saved: every earlier step must be complete.
func (d *Definition) CanEdit(n int, completed []int) bool {
	if n < 1 || n > d.Len() {
		return false
	}
	return n <= ContiguousCompleted(completed)+1
}

// NextStep is the step to show after saving step n.
func (d *Definition) NextStep(n int) int {
	if n >= d.Len() {
		return d.Len()
	}
	return n + 1
}

// IsComplete reports whether every step has been completed.
func (d *Definition) IsComplete(completed []int) bool {
	return ContiguousCompleted(completed) >= d.Len()
}

// Missing lists the step numbers not yet completed.
func (d *Definition) Missing(completed []int) []int {
	done := make(map[int]bool, len(completed))
	for _, c := range completed {
		done[c] = true
	}
	var out []int
	for i := 1; i <= d.Len(); i++ {
		if !done[i] {
			out = append(out, i)
		}
	}
	return out
}

// ValidateStep checks payload against step n. A nil result means the step is valid.
func (d *Definition) ValidateStep(n int, payload map[string]interface{}, steps map[string]map[string]interface{}) Errors {
	step, ok := d.Step(n)
	if !ok {
		return Errors{"step": fmt.Sprintf("step %d does not exist", n)}
	}
	errs := validateFields(step.Fields, payload)
	if len(errs) == 0 && step.Check != nil {
		errs = step.Check(payload, steps)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateFields(fields []Field, payload map[string]interface{}) Errors {
	errs := Errors{}
	for _, f := range fields {
		v, present := payload[f.Name]
		if !present || isBlank(v) {
			if f.Required {
				errs[f.Name] = requiredMessage(f)
			}
			continue
		}
		if msg, nested := validateValue(f, v); msg != "" {
			errs[f.Name] = msg
		} else if len(nested) > 0 {
			errs.merge(f.Name+".", nested)
		}
	}
	return errs
}

func requiredMessage(f Field) string {
	if f.Kind == KindBool {
		return f.Label + " must be confirmed"
	}
	return f.Label + " is required"
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	case bool:
		return !t
	}
	return false
}

func validateValue(f Field, v interface{}) (string, Errors) {
	switch f.Kind {
	case KindText, KindTextarea:
		if _, ok := v.(string); !ok {
			return f.Label + " must be text", nil
		}
	case KindDate:
		s, ok := v.(string)
		if !ok {
			return f.Label + " must be a date", nil
		}
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
			return f.Label + " must be a date (YYYY-MM-DD)", nil
		}
	case KindEmail:
		s, ok := v.(string)
		if !ok || !utils.ValidateEmail(strings.TrimSpace(s)) {
			return f.Label + " must be a valid e-mail address", nil
		}
	case KindSelect:
		s, ok := v.(string)
		if !ok || !inOptions(f.Options, s) {
			return f.Label + " has an invalid choice", nil
		}
	case KindMultiSelect, KindList:
		items, ok := v.([]interface{})
		if !ok {
			return f.Label + " must be a list", nil
		}
		if len(items) < f.MinItems {
			return fmt.Sprintf("%s needs at least %d item(s)", f.Label, f.MinItems), nil
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return f.Label + " contains an empty item", nil
			}
			if f.Kind == KindMultiSelect && !inOptions(f.Options, s) {
				return f.Label + " has an invalid choice", nil
			}
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return f.Label + " must be true or false", nil
		}
	case KindNumber:
		n, ok := v.(float64)
		if !ok {
			return f.Label + " must be a number", nil
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Sprintf("%s must be at least %g", f.Label, *f.Min), nil
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Sprintf("%s must be at most %g", f.Label, *f.Max), nil
		}
	case KindObjectList:
		items, ok := v.([]interface{})
		if !ok {
			return f.Label + " must be a list", nil
		}
		if len(items) < f.MinItems {
			return fmt.Sprintf("%s needs at least %d item(s)", f.Label, f.MinItems), nil
		}
		nested := Errors{}
		for i, item := range items {
			obj, ok := item.(map[string]interface{})
			if !ok {
				nested[fmt.Sprintf("%d", i)] = "must be an object"
				continue
			}
			nested.merge(fmt.Sprintf("%d.", i), validateFields(f.Item, obj))
		}
		return "", nested
	}
	return "", nil
}

func inOptions(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// Number reads a numeric payload value as an int.
func Number(payload map[string]interface{}, key string) int {
	if f, ok := payload[key].(float64); ok {
		return int(math.Round(f))
	}
	return 0
}

// String reads a trimmed string payload value.
func String(payload map[string]interface{}, key string) string {
	if s, ok := payload[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// Objects reads an object_list payload value.
func Objects(payload map[string]interface{}, key string) []map[string]interface{} {
	raw, _ := payload[key].([]interface{})
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Strings reads a list payload value.
func Strings(payload map[string]interface{}, key string) []string {
	raw, _ := payload[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func bound(v float64) *float64 { return &v }

// Stale lists the completed steps after n whose cross-step checks fail against
// steps. Saving step n can invalidate a later step that reads it.
func (d *Definition) Stale(n int, completed []int, steps map[string]map[string]interface{}) []int {
	var out []int
	for _, m := range completed {
		if m <= n {
			continue
		}
		step, ok := d.Step(m)
		if !ok || step.Check == nil {
			continue
		}
		if d.ValidateStep(m, steps[step.Key], steps) != nil {
			out = append(out, m)
		}
	}
	return out
}

// Invalid lists the completed steps whose saved payload no longer validates.
func (d *Definition) Invalid(completed []int, steps map[string]map[string]interface{}) []int {
	var out []int
	for _, m := range completed {
		step, ok := d.Step(m)
		if !ok {
			continue
		}
		if d.ValidateStep(m, steps[step.Key], steps) != nil {
			out = append(out, m)
		}
	}
	return out
}
