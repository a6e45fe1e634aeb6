package forms

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voiceform/backend/internal/questionnaire"
)

// ErrFormNotFound is returned for an unknown form id with no saved draft.
var ErrFormNotFound = errors.New("form not found")

// draftTimeout bounds best-effort draft reads and writes.
const draftTimeout = 2 * time.Second

// Store tracks live form sessions in memory and snapshots drafts to the
// draft store.
type Store struct {
	qn     *questionnaire.Questionnaire
	policy ClipPolicy
	drafts DraftStore
	log    *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*FormSession
}

// NewStore creates a form session store.
func NewStore(qn *questionnaire.Questionnaire, policy ClipPolicy, drafts DraftStore, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if drafts == nil {
		drafts = NopDraftStore{}
	}
	return &Store{
		qn:       qn,
		policy:   policy,
		drafts:   drafts,
		log:      log,
		sessions: make(map[uuid.UUID]*FormSession),
	}
}

// Open creates a fresh form session.
func (s *Store) Open() *FormSession {
	form := NewFormSession(uuid.New(), s.qn, s.policy)
	s.mu.Lock()
	s.sessions[form.ID()] = form
	s.mu.Unlock()
	return form
}

// Resume returns the live session for the id, or rebuilds one from its
// draft. ErrFormNotFound when neither exists.
func (s *Store) Resume(ctx context.Context, formID uuid.UUID) (*FormSession, error) {
	s.mu.Lock()
	if form, ok := s.sessions[formID]; ok {
		s.mu.Unlock()
		return form, nil
	}
	s.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, draftTimeout)
	defer cancel()
	draft, err := s.drafts.Load(dctx, formID)
	if err != nil {
		// Drafts are best-effort: an unreachable store degrades to "no
		// draft" so the client can open a fresh form.
		s.log.Warn("draft load failed", zap.String("form_id", formID.String()), zap.Error(err))
		return nil, ErrFormNotFound
	}
	if draft == nil {
		return nil, ErrFormNotFound
	}

	form := NewFormSession(formID, s.qn, s.policy)
	for key, text := range draft.Texts {
		if err := form.SetText(key, text); err != nil {
			s.log.Warn("draft has unknown question", zap.String("form_id", formID.String()), zap.String("question_id", key))
		}
	}
	_ = form.SetConsent(draft.Consent)

	s.mu.Lock()
	// A concurrent Resume may have rebuilt it first; keep that one.
	if existing, ok := s.sessions[formID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.sessions[formID] = form
	s.mu.Unlock()
	return form, nil
}

// Get returns the live session for the id.
func (s *Store) Get(formID uuid.UUID) (*FormSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	form, ok := s.sessions[formID]
	return form, ok
}

// SaveDraft snapshots the form's text answers and consent. Best-effort: a
// failing draft store is logged, never surfaced.
func (s *Store) SaveDraft(ctx context.Context, form *FormSession) {
	dctx, cancel := context.WithTimeout(ctx, draftTimeout)
	defer cancel()
	if err := s.drafts.Save(dctx, form.ID(), Draft{Texts: form.Texts(), Consent: form.Consent()}); err != nil {
		s.log.Warn("draft save failed", zap.String("form_id", form.ID().String()), zap.Error(err))
	}
}

// DropDraft removes the draft after a successful submission.
func (s *Store) DropDraft(ctx context.Context, formID uuid.UUID) {
	dctx, cancel := context.WithTimeout(ctx, draftTimeout)
	defer cancel()
	if err := s.drafts.Delete(dctx, formID); err != nil {
		s.log.Warn("draft delete failed", zap.String("form_id", formID.String()), zap.Error(err))
	}
}
