package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allClear() map[string]interface{} {
	return map[string]interface{}{
		"fit_for_work":       "yes",
		"new_condition":      "no",
		"medication_drowsy":  "no",
		"hearing_vision":     "no",
		"skin_breathing":     "no",
		"vibration_symptoms": "no",
		"working_at_height":  "no",
	}
}

func TestDefaultQuestionSetLoads(t *testing.T) {
	bank, err := LoadQuestionBank("")
	require.NoError(t, err)

	qs := bank.Current()
	assert.NotEmpty(t, qs.Version)
	assert.Len(t, qs.Questions, 8)
}

func TestParseQuestionSetRejects(t *testing.T) {
	cases := map[string]string{
		"no version":   "questions:\n  - {id: a, text: A, kind: yes_no}\n",
		"no questions": "version: '1'\n",
		"duplicate id": "version: '1'\nquestions:\n  - {id: a, text: A, kind: yes_no}\n  - {id: a, text: B, kind: text}\n",
		"bad kind":     "version: '1'\nquestions:\n  - {id: a, text: A, kind: scale}\n",
		"bad flag":     "version: '1'\nquestions:\n  - {id: a, text: A, kind: yes_no, flag_on: maybe}\n",
		"text flags":   "version: '1'\nquestions:\n  - {id: a, text: A, kind: text, flag_on: 'yes'}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuestionSet([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestEvaluateFlagsAnswers(t *testing.T) {
	bank, err := LoadQuestionBank("")
	require.NoError(t, err)
	qs := bank.Current()

	flags, err := qs.Evaluate(allClear())
	require.NoError(t, err)
	assert.Empty(t, flags)

	answers := allClear()
	answers["fit_for_work"] = "No"
	answers["hearing_vision"] = " yes "
	answers["details"] = "Tinnitus after breaker work"
	flags, err = qs.Evaluate(answers)
	require.NoError(t, err)
	assert.Equal(t, []string{"fit_for_work", "hearing_vision"}, flags)
}

func TestEvaluateReportsEveryProblem(t *testing.T) {
	bank, err := LoadQuestionBank("")
	require.NoError(t, err)

	answers := allClear()
	delete(answers, "new_condition")
	answers["medication_drowsy"] = "sometimes"
	answers["hearing_vision"] = true
	answers["shoe_size"] = "9"

	_, err = bank.Current().Evaluate(answers)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Please answer this question", verr.Fields["answers.new_condition"])
	assert.Equal(t, "Answer yes or no", verr.Fields["answers.medication_drowsy"])
	assert.Equal(t, "Answer must be text", verr.Fields["answers.hearing_vision"])
	assert.Equal(t, "Unknown question", verr.Fields["answers.shoe_size"])
	assert.NotContains(t, verr.Fields, "answers.details")
}

func TestQuestionBankWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.yaml")
	v1 := "version: 'v1'\nquestions:\n  - {id: fit, text: Fit today, kind: yes_no, flag_on: 'no', required: true}\n"
	v2 := "version: 'v2'\nquestions:\n  - {id: fit, text: Fit today, kind: yes_no, flag_on: 'no', required: true}\n"
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o644))

	bank, err := LoadQuestionBank(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", bank.Current().Version)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bank.Watch(ctx) }()

	// a broken file keeps the previous set
	require.NoError(t, os.WriteFile(path, []byte("version: [unterminated"), 0o644))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "v1", bank.Current().Version)

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(v2), 0o644)
		return bank.Current().Version == "v2"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
