package models

import (
	"strings"
	"time"
)

// ClipContentType is the audio container produced by capture. All clips use
// the same codec container; the upload path extension must match.
const ClipContentType = "audio/webm"

// ClipExt is the file extension for uploaded clips.
const ClipExt = ".webm"

// Clip is one discrete recorded audio take for a question.
type Clip struct {
	Data        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Answer is the merged text + clip set for one question. It is mutated only
// through the answer slot that owns the question.
type Answer struct {
	Text  string `json:"text"`
	Clips []Clip `json:"clips"`
}

// Answered reports whether the answer satisfies the non-empty rule:
// trimmed text present or at least one recorded clip.
func (a Answer) Answered() bool {
	return strings.TrimSpace(a.Text) != "" || len(a.Clips) > 0
}
