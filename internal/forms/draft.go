package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Draft is the resumable part of a form: text answers and consent. Clip
// payloads are never drafted.
type Draft struct {
	Texts   map[string]string `json:"texts"`
	Consent bool              `json:"consent"`
}

// DraftStore persists form drafts so a returning client can resume after the
// process restarts. Saving is best-effort; a failing store must never block
// form operations.
type DraftStore interface {
	Save(ctx context.Context, formID uuid.UUID, d Draft) error
	// Load returns nil, nil when no draft exists.
	Load(ctx context.Context, formID uuid.UUID) (*Draft, error)
	Delete(ctx context.Context, formID uuid.UUID) error
}

// RedisDraftStore keeps drafts as JSON values with a TTL.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDraftStore creates a Redis-backed draft store.
func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDraftStore{client: client, ttl: ttl}
}

func draftKey(formID uuid.UUID) string {
	return "form:draft:" + formID.String()
}

// Save writes the draft, refreshing the TTL.
func (s *RedisDraftStore) Save(ctx context.Context, formID uuid.UUID, d Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(formID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load reads the draft for a form, or nil when none exists.
func (s *RedisDraftStore) Load(ctx context.Context, formID uuid.UUID) (*Draft, error) {
	raw, err := s.client.Get(ctx, draftKey(formID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

// Delete removes the draft after a successful submission.
func (s *RedisDraftStore) Delete(ctx context.Context, formID uuid.UUID) error {
	if err := s.client.Del(ctx, draftKey(formID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// NopDraftStore is used when Redis is not configured; forms simply cannot be
// resumed across restarts.
type NopDraftStore struct{}

func (NopDraftStore) Save(context.Context, uuid.UUID, Draft) error { return nil }

func (NopDraftStore) Load(context.Context, uuid.UUID) (*Draft, error) { return nil, nil }

func (NopDraftStore) Delete(context.Context, uuid.UUID) error { return nil }
