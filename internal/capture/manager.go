package capture

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voiceform/backend/internal/models"
)

type sessionKey struct {
	form     uuid.UUID
	question string
}

// Manager tracks active recording sessions. At most one session may be
// recording per (form, question) at a time; every session's stream is
// released on stop, abort, and shutdown.
type Manager struct {
	maxClipBytes int64
	log          *zap.Logger

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

// NewManager creates a session manager. maxClipBytes <= 0 disables the
// per-clip size limit.
func NewManager(maxClipBytes int64, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		maxClipBytes: maxClipBytes,
		log:          log,
		sessions:     make(map[sessionKey]*Session),
	}
}

// Start creates and starts a recording session for the question. Returns
// ErrAlreadyRecording if one is active, or an ErrCaptureUnavailable-wrapped
// error if the device cannot be acquired.
func (m *Manager) Start(ctx context.Context, formID uuid.UUID, questionID string, device Device) error {
	key := sessionKey{form: formID, question: questionID}
	session := NewSession(device, m.maxClipBytes)

	m.mu.Lock()
	if _, exists := m.sessions[key]; exists {
		m.mu.Unlock()
		return ErrAlreadyRecording
	}
	m.sessions[key] = session
	m.mu.Unlock()

	if err := session.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.sessions, key)
		m.mu.Unlock()
		return err
	}
	m.log.Info("recording started",
		zap.String("form_id", formID.String()),
		zap.String("question_id", questionID))
	return nil
}

// Stop finalizes the active recording for the question into a clip.
func (m *Manager) Stop(formID uuid.UUID, questionID string) (models.Clip, error) {
	session, err := m.take(formID, questionID)
	if err != nil {
		return models.Clip{}, err
	}
	clip, err := session.Stop()
	if err != nil {
		return models.Clip{}, err
	}
	m.log.Info("recording stopped",
		zap.String("form_id", formID.String()),
		zap.String("question_id", questionID),
		zap.Int64("clip_bytes", clip.Size))
	return clip, nil
}

// Abort discards the active recording for the question, releasing its stream.
func (m *Manager) Abort(formID uuid.UUID, questionID string) error {
	session, err := m.take(formID, questionID)
	if err != nil {
		return err
	}
	if err := session.Abort(); err != nil {
		return err
	}
	m.log.Info("recording aborted",
		zap.String("form_id", formID.String()),
		zap.String("question_id", questionID))
	return nil
}

// Active reports whether a recording is in progress for the question.
func (m *Manager) Active(formID uuid.UUID, questionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionKey{form: formID, question: questionID}]
	return ok
}

// Shutdown aborts every active session so no stream is left held.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[sessionKey]*Session)
	m.mu.Unlock()

	for key, session := range sessions {
		if err := session.Abort(); err == nil {
			m.log.Warn("recording aborted on shutdown",
				zap.String("form_id", key.form.String()),
				zap.String("question_id", key.question))
		}
	}
}

func (m *Manager) take(formID uuid.UUID, questionID string) (*Session, error) {
	key := sessionKey{form: formID, question: questionID}
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[key]
	if !ok {
		return nil, ErrNotRecording
	}
	delete(m.sessions, key)
	return session, nil
}
