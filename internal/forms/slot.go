// Package forms holds per-form answer state: one answer slot per question,
// the consent flag, completion progress, and the form lifecycle.
package forms

import (
	"errors"

	"github.com/voiceform/backend/internal/models"
)

// ClipPolicy controls what happens when a new clip is recorded for a
// question that already has one.
type ClipPolicy string

const (
	// ClipPolicyAppend keeps prior takes as an ordered list with per-clip
	// delete. This is the default.
	ClipPolicyAppend ClipPolicy = "append"
	// ClipPolicyReplace discards the prior take; the destructive step
	// requires explicit confirmation.
	ClipPolicyReplace ClipPolicy = "replace"
)

// ErrConfirmRequired is returned when a destructive clip operation (delete,
// or replace under ClipPolicyReplace) is attempted without confirmation.
var ErrConfirmRequired = errors.New("confirmation required")

// ErrClipNotFound is returned for an out-of-range clip index.
var ErrClipNotFound = errors.New("clip not found")

// ReportFunc receives the slot's merged answer after every mutation.
type ReportFunc func(questionID string, answer models.Answer)

// AnswerSlot owns one question's answer: the text note plus zero or more
// recorded clips. Not safe for concurrent use; the owning form session
// serializes access.
type AnswerSlot struct {
	questionID string
	policy     ClipPolicy
	text       string
	clips      []models.Clip
	report     ReportFunc
}

// NewAnswerSlot creates a slot for the question. report is invoked
// synchronously on every mutation with the merged answer.
func NewAnswerSlot(questionID string, policy ClipPolicy, report ReportFunc) *AnswerSlot {
	return &AnswerSlot{questionID: questionID, policy: policy, report: report}
}

// SetText replaces the text note and forwards the merged answer.
func (s *AnswerSlot) SetText(text string) {
	s.text = text
	s.emit()
}

// AddClip attaches a completed clip. Under ClipPolicyReplace an existing
// clip is only discarded when confirmed; the superseded clip's local handle
// is dropped with it.
func (s *AnswerSlot) AddClip(clip models.Clip, confirmed bool) error {
	if s.policy == ClipPolicyReplace && len(s.clips) > 0 {
		if !confirmed {
			return ErrConfirmRequired
		}
		s.clips = s.clips[:0]
	}
	s.clips = append(s.clips, clip)
	s.emit()
	return nil
}

// DeleteClip removes the clip at index, preserving the order of the
// remaining clips. Requires confirmation.
func (s *AnswerSlot) DeleteClip(index int, confirmed bool) error {
	if index < 0 || index >= len(s.clips) {
		return ErrClipNotFound
	}
	if !confirmed {
		return ErrConfirmRequired
	}
	s.clips = append(s.clips[:index], s.clips[index+1:]...)
	s.emit()
	return nil
}

// Clip returns the clip at index, for local preview.
func (s *AnswerSlot) Clip(index int) (models.Clip, error) {
	if index < 0 || index >= len(s.clips) {
		return models.Clip{}, ErrClipNotFound
	}
	return s.clips[index], nil
}

// Answer returns the slot's merged answer. The clip slice is copied so
// later slot mutations cannot reorder a caller's snapshot.
func (s *AnswerSlot) Answer() models.Answer {
	clips := make([]models.Clip, len(s.clips))
	copy(clips, s.clips)
	return models.Answer{Text: s.text, Clips: clips}
}

func (s *AnswerSlot) emit() {
	if s.report != nil {
		s.report(s.questionID, s.Answer())
	}
}
