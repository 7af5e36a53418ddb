package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Question kinds.
const (
	QuestionYesNo = "yes_no"
	QuestionText  = "text"
)

//go:embed questionnaire_default.yaml
var defaultQuestionSet []byte

type Question struct {
	ID       string `yaml:"id" json:"id"`
	Text     string `yaml:"text" json:"text"`
	Kind     string `yaml:"kind" json:"kind"`
	FlagOn   string `yaml:"flag_on" json:"flag_on,omitempty"`
	Required bool   `yaml:"required" json:"required"`
}

type QuestionSet struct {
	Version   string     `yaml:"version" json:"version"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// ParseQuestionSet decodes and checks a YAML question set.
func ParseQuestionSet(data []byte) (QuestionSet, error) {
	var qs QuestionSet
	if err := yaml.Unmarshal(data, &qs); err != nil {
		return QuestionSet{}, fmt.Errorf("parse question set: %w", err)
	}
	if strings.TrimSpace(qs.Version) == "" {
		return QuestionSet{}, errors.New("question set has no version")
	}
	if len(qs.Questions) == 0 {
		return QuestionSet{}, errors.New("question set has no questions")
	}
	seen := make(map[string]bool, len(qs.Questions))
	for i, q := range qs.Questions {
		if q.ID == "" || q.Text == "" {
			return QuestionSet{}, fmt.Errorf("question %d needs an id and text", i+1)
		}
		if seen[q.ID] {
			return QuestionSet{}, fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		switch q.Kind {
		case QuestionYesNo:
			if q.FlagOn != "" && q.FlagOn != "yes" && q.FlagOn != "no" {
				return QuestionSet{}, fmt.Errorf("question %q: flag_on must be yes or no", q.ID)
			}
		case QuestionText:
			if q.FlagOn != "" {
				return QuestionSet{}, fmt.Errorf("question %q: text questions cannot flag", q.ID)
			}
		default:
			return QuestionSet{}, fmt.Errorf("question %q: unknown kind %q", q.ID, q.Kind)
		}
	}
	return qs, nil
}

// Evaluate checks answers against the set and returns the ids of the
// questions whose answer raised a flag.
func (qs QuestionSet) Evaluate(answers map[string]interface{}) ([]string, error) {
	errs := fieldErrors{}
	var flags []string
	for _, q := range qs.Questions {
		raw, present := answers[q.ID]
		s, isString := raw.(string)
		s = strings.ToLower(strings.TrimSpace(s))
		if !present || raw == nil || (isString && s == "") {
			if q.Required {
				errs.add("answers."+q.ID, "Please answer this question")
			}
			continue
		}
		if !isString {
			errs.add("answers."+q.ID, "Answer must be text")
			continue
		}
		if q.Kind == QuestionYesNo {
			if s != "yes" && s != "no" {
				errs.add("answers."+q.ID, "Answer yes or no")
				continue
			}
			if q.FlagOn != "" && s == q.FlagOn {
				flags = append(flags, q.ID)
			}
		}
	}
	for id := range answers {
		if !qs.has(id) {
			errs.add("answers."+id, "Unknown question")
		}
	}
	return flags, errs.err()
}

func (qs QuestionSet) has(id string) bool {
	for _, q := range qs.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// QuestionBank holds the active question set and reloads it when the
// backing file changes.
type QuestionBank struct {
	mu   sync.RWMutex
	set  QuestionSet
	path string
}

// LoadQuestionBank reads path, or the built-in set when path is empty.
func LoadQuestionBank(path string) (*QuestionBank, error) {
	b := &QuestionBank{path: path}
	if path == "" {
		qs, err := ParseQuestionSet(defaultQuestionSet)
		if err != nil {
			return nil, err
		}
		b.set = qs
		return b, nil
	}
	if err := b.reload(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *QuestionBank) Current() QuestionSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.set
}

func (b *QuestionBank) reload() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("read question set: %w", err)
	}
	qs, err := ParseQuestionSet(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.set = qs
	b.mu.Unlock()
	return nil
}

// Watch reloads the question set on change until ctx is done. A broken file
// is logged and the previous set stays active. Nothing is watched for the
// built-in set.
func (b *QuestionBank) Watch(ctx context.Context) error {
	if b.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(b.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", b.path, err)
	}
	target := filepath.Clean(b.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := b.reload(); err != nil {
				log.WithError(err).WithField("file", b.path).Warn("question set reload failed, keeping previous version")
				continue
			}
			log.WithField("version", b.Current().Version).Info("question set reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("question set watcher error")
		}
	}
}
