package forms

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voiceform/backend/internal/models"
	"github.com/voiceform/backend/internal/questionnaire"
)

// Form lifecycle states. There is no other navigation: a form is either
// being filled or has been submitted.
const (
	StateForm      = "form"
	StateSubmitted = "submitted"
)

// ErrFormSubmitted is returned for mutations after a successful submission.
var ErrFormSubmitted = errors.New("form already submitted")

// ErrSubmitInFlight is returned while a submission attempt is pending; the
// submit action is disabled and answers are frozen until it resolves.
var ErrSubmitInFlight = errors.New("submission in progress")

// ErrUnknownQuestion is returned for a question key outside the fixed set.
var ErrUnknownQuestion = errors.New("unknown question")

// FormSession is one client's in-progress questionnaire: an answer slot per
// question, the consent flag, and the submit lifecycle. All access is
// serialized by the session mutex.
type FormSession struct {
	id        uuid.UUID
	qn        *questionnaire.Questionnaire
	createdAt time.Time

	mu         sync.Mutex
	slots      map[string]*AnswerSlot
	answers    map[string]models.Answer
	consent    bool
	state      string
	submitting bool
	submitPct  int
	documentID string
}

// NewFormSession creates a session with one slot per question. Each slot
// reports its merged answer back into the session's answer set.
func NewFormSession(id uuid.UUID, qn *questionnaire.Questionnaire, policy ClipPolicy) *FormSession {
	s := &FormSession{
		id:        id,
		qn:        qn,
		createdAt: time.Now().UTC(),
		slots:     make(map[string]*AnswerSlot, qn.Len()),
		answers:   make(map[string]models.Answer, qn.Len()),
		state:     StateForm,
	}
	for _, q := range qn.Questions() {
		key := q.Key
		s.slots[key] = NewAnswerSlot(key, policy, func(questionID string, answer models.Answer) {
			s.answers[questionID] = answer
		})
	}
	return s
}

// ID returns the form id.
func (s *FormSession) ID() uuid.UUID { return s.id }

// Questionnaire returns the question set backing this form.
func (s *FormSession) Questionnaire() *questionnaire.Questionnaire { return s.qn }

// editable reports why the form cannot be mutated, if it cannot.
func (s *FormSession) editable() error {
	if s.state == StateSubmitted {
		return ErrFormSubmitted
	}
	if s.submitting {
		return ErrSubmitInFlight
	}
	return nil
}

// EnsureEditable returns an error when the form no longer accepts changes.
func (s *FormSession) EnsureEditable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editable()
}

func (s *FormSession) slot(questionID string) (*AnswerSlot, error) {
	slot, ok := s.slots[questionID]
	if !ok {
		return nil, ErrUnknownQuestion
	}
	return slot, nil
}

// SetText sets the text answer for a question.
func (s *FormSession) SetText(questionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	slot, err := s.slot(questionID)
	if err != nil {
		return err
	}
	slot.SetText(text)
	return nil
}

// AddClip attaches a completed recording to the question's slot.
func (s *FormSession) AddClip(questionID string, clip models.Clip, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	slot, err := s.slot(questionID)
	if err != nil {
		return err
	}
	return slot.AddClip(clip, confirmed)
}

// DeleteClip removes one clip from the question's slot.
func (s *FormSession) DeleteClip(questionID string, index int, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	slot, err := s.slot(questionID)
	if err != nil {
		return err
	}
	return slot.DeleteClip(index, confirmed)
}

// Clip returns the clip at index for a question, for preview playback.
func (s *FormSession) Clip(questionID string, index int) (models.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.slot(questionID)
	if err != nil {
		return models.Clip{}, err
	}
	return slot.Clip(index)
}

// SetConsent sets the consent flag.
func (s *FormSession) SetConsent(consent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.consent = consent
	return nil
}

// Consent returns the consent flag.
func (s *FormSession) Consent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consent
}

// Snapshot returns a copy of the current answer set and the consent flag,
// the immutable inputs for one submission attempt.
func (s *FormSession) Snapshot() (map[string]models.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make(map[string]models.Answer, len(s.answers))
	for key, a := range s.answers {
		answers[key] = a
	}
	return answers, s.consent
}

// Texts returns the current text answers, for draft snapshots. Clips are
// never drafted.
func (s *FormSession) Texts() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	texts := make(map[string]string, len(s.answers))
	for key, a := range s.answers {
		if a.Text != "" {
			texts[key] = a.Text
		}
	}
	return texts
}

// Progress returns the completion percentage, rounded for display.
func (s *FormSession) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ProgressPercent(s.answers, s.qn.Len())
}

// BeginSubmit marks a submission attempt as in flight and resets the
// submit progress. Only one attempt may be pending at a time.
func (s *FormSession) BeginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.submitting = true
	s.submitPct = 0
	return nil
}

// SetSubmitProgress records upload/persist progress for the pending attempt.
// Progress is monotonically non-decreasing within one attempt.
func (s *FormSession) SetSubmitProgress(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pct > s.submitPct {
		s.submitPct = pct
	}
}

// SubmitProgress returns the pending attempt's progress percentage.
func (s *FormSession) SubmitProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitPct
}

// FinishSubmit transitions the form to the read-only submitted state.
func (s *FormSession) FinishSubmit(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.submitPct = 100
	s.state = StateSubmitted
	s.documentID = documentID
}

// FailSubmit returns the form to the interactive state after a failed
// attempt: progress resets to 0, answers are preserved for resubmission.
func (s *FormSession) FailSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.submitPct = 0
}

// ClipView describes a recorded clip without its payload.
type ClipView struct {
	Index       int       `json:"index"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnswerView is one question's current answer as returned by the API.
type AnswerView struct {
	QuestionID string     `json:"question_id"`
	Text       string     `json:"text"`
	Clips      []ClipView `json:"clips"`
}

// View is the full form state as returned by the API.
type View struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	State          string            `json:"state"`
	Consent        bool              `json:"consent"`
	Progress       int               `json:"progress"`
	SubmitProgress int               `json:"submit_progress"`
	Questions      []models.Question `json:"questions"`
	Answers        []AnswerView      `json:"answers"`
	DocumentID     string            `json:"document_id,omitempty"`
}

// View returns the current form state.
func (s *FormSession) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make([]AnswerView, 0, s.qn.Len())
	for _, q := range s.qn.Questions() {
		a := s.answers[q.Key]
		clips := make([]ClipView, len(a.Clips))
		for i, clip := range a.Clips {
			clips[i] = ClipView{
				Index:       i,
				Size:        clip.Size,
				ContentType: clip.ContentType,
				CreatedAt:   clip.CreatedAt,
			}
		}
		answers = append(answers, AnswerView{QuestionID: q.Key, Text: a.Text, Clips: clips})
	}
	return View{
		ID:             s.id.String(),
		Title:          s.qn.Title(),
		State:          s.state,
		Consent:        s.consent,
		Progress:       ProgressPercent(s.answers, s.qn.Len()),
		SubmitProgress: s.submitPct,
		Questions:      s.qn.Questions(),
		Answers:        answers,
		DocumentID:     s.documentID,
	}
}
