package forms

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceform/backend/internal/questionnaire"
)

type memDraftStore struct {
	drafts map[uuid.UUID]Draft
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{drafts: make(map[uuid.UUID]Draft)}
}

func (s *memDraftStore) Save(ctx context.Context, formID uuid.UUID, d Draft) error {
	s.drafts[formID] = d
	return nil
}

func (s *memDraftStore) Load(ctx context.Context, formID uuid.UUID) (*Draft, error) {
	d, ok := s.drafts[formID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *memDraftStore) Delete(ctx context.Context, formID uuid.UUID) error {
	delete(s.drafts, formID)
	return nil
}

type failingDraftStore struct{ err error }

func (s failingDraftStore) Save(context.Context, uuid.UUID, Draft) error { return s.err }

func (s failingDraftStore) Load(context.Context, uuid.UUID) (*Draft, error) { return nil, s.err }

func (s failingDraftStore) Delete(context.Context, uuid.UUID) error { return s.err }

func TestStoreResumeFromDraft(t *testing.T) {
	qn := questionnaire.New("test", []string{"first?", "second?"})
	drafts := newMemDraftStore()

	store := NewStore(qn, ClipPolicyAppend, drafts, nil)
	form := store.Open()
	require.NoError(t, form.SetText("q0", "kept across restarts"))
	require.NoError(t, form.SetConsent(true))
	store.SaveDraft(context.Background(), form)

	// A new store simulates a process restart; only the draft survives.
	restarted := NewStore(qn, ClipPolicyAppend, drafts, nil)
	resumed, err := restarted.Resume(context.Background(), form.ID())
	require.NoError(t, err)

	answers, consent := resumed.Snapshot()
	assert.Equal(t, "kept across restarts", answers["q0"].Text)
	assert.True(t, consent)
	// Clip payloads are never drafted.
	assert.Empty(t, answers["q0"].Clips)
}

func TestStoreResumeLiveSession(t *testing.T) {
	qn := questionnaire.New("test", []string{"first?"})
	store := NewStore(qn, ClipPolicyAppend, newMemDraftStore(), nil)
	form := store.Open()

	resumed, err := store.Resume(context.Background(), form.ID())
	require.NoError(t, err)
	assert.Same(t, form, resumed)
}

func TestStoreResumeUnknownForm(t *testing.T) {
	qn := questionnaire.New("test", []string{"first?"})
	store := NewStore(qn, ClipPolicyAppend, NopDraftStore{}, nil)

	_, err := store.Resume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestStoreResumeDraftStoreOutage(t *testing.T) {
	qn := questionnaire.New("test", []string{"first?"})
	store := NewStore(qn, ClipPolicyAppend, failingDraftStore{err: errors.New("redis down")}, nil)

	// An unreachable draft store degrades to "no draft"; it never surfaces
	// as an internal failure.
	_, err := store.Resume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestStoreSaveDraftBestEffort(t *testing.T) {
	qn := questionnaire.New("test", []string{"first?"})
	store := NewStore(qn, ClipPolicyAppend, failingDraftStore{err: errors.New("redis down")}, nil)
	form := store.Open()
	require.NoError(t, form.SetText("q0", "x"))

	// A failing store is logged, never surfaced.
	store.SaveDraft(context.Background(), form)
	store.DropDraft(context.Background(), form.ID())

	live, ok := store.Get(form.ID())
	require.True(t, ok)
	answers, _ := live.Snapshot()
	assert.Equal(t, "x", answers["q0"].Text)
}
