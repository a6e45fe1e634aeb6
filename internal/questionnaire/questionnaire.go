// Package questionnaire holds the fixed interview question list.
package questionnaire

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/voiceform/backend/internal/models"
)

// file is the YAML shape of a questionnaire definition.
type file struct {
	Title     string   `yaml:"title"`
	Questions []string `yaml:"questions"`
}

// Questionnaire is an immutable ordered question set. Keys are derived from
// the ordinal (q0..qN-1) and stay stable for the life of the process.
type Questionnaire struct {
	title     string
	questions []models.Question
	byKey     map[string]models.Question
}

// Load reads a questionnaire from a YAML file.
func Load(path string) (*Questionnaire, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questionnaire: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse questionnaire: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("questionnaire %s has no questions", path)
	}
	return New(f.Title, f.Questions), nil
}

// Default returns the built-in expert interview questionnaire, used when no
// questionnaire file is configured.
func Default() *Questionnaire {
	return New("Expert Interview", []string{
		"How would you describe your organization's mission in your own words?",
		"What motivated you to work in this field?",
		"Which problem does your organization address, and for whom?",
		"How do you measure the impact of your work?",
		"What role does funding play in your day-to-day decisions?",
		"How do you balance social goals against financial sustainability?",
		"Which partnerships have been most important to your growth?",
		"What was the biggest obstacle you faced, and how did you overcome it?",
		"How do you see your sector changing over the next five years?",
		"What advice would you give someone starting out in this field?",
	})
}

// New builds a questionnaire from ordered question texts.
func New(title string, texts []string) *Questionnaire {
	qs := make([]models.Question, len(texts))
	byKey := make(map[string]models.Question, len(texts))
	for i, text := range texts {
		q := models.Question{Key: fmt.Sprintf("q%d", i), Text: text}
		qs[i] = q
		byKey[q.Key] = q
	}
	return &Questionnaire{title: title, questions: qs, byKey: byKey}
}

// Title returns the questionnaire title.
func (q *Questionnaire) Title() string { return q.title }

// Len returns the number of questions.
func (q *Questionnaire) Len() int { return len(q.questions) }

// Questions returns the ordered question list. Callers must not mutate it.
func (q *Questionnaire) Questions() []models.Question { return q.questions }

// Get returns the question for a key.
func (q *Questionnaire) Get(key string) (models.Question, bool) {
	question, ok := q.byKey[key]
	return question, ok
}
