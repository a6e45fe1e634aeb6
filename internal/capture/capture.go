// Package capture owns the per-question audio recording lifecycle: acquiring
// a chunk stream, buffering chunks while recording, and finalizing the buffer
// into a single clip when the recording stops.
package capture

import (
	"context"
	"errors"
	"sync"
)

// ErrCaptureUnavailable is returned when the capture source cannot be
// acquired (permission denied or device busy). The recording never starts.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// ErrAlreadyRecording is returned when a recording is started for a question
// that already has an active session.
var ErrAlreadyRecording = errors.New("recording already in progress")

// ErrNotRecording is returned when Stop or Abort is called with no active
// recording for the question.
var ErrNotRecording = errors.New("no active recording")

// Device turns a capture request into a chunk stream. Acquisition failures
// are reported as ErrCaptureUnavailable (possibly wrapped).
type Device interface {
	RequestStream(ctx context.Context) (Stream, error)
}

// DeviceFunc adapts a function to the Device interface.
type DeviceFunc func(ctx context.Context) (Stream, error)

// RequestStream calls f.
func (f DeviceFunc) RequestStream(ctx context.Context) (Stream, error) { return f(ctx) }

// StaticDevice returns a Device that hands out an already-acquired stream.
// Used by the WebSocket ingest path where the connection is the stream.
func StaticDevice(s Stream) Device {
	return DeviceFunc(func(ctx context.Context) (Stream, error) { return s, nil })
}

// Stream is an acquired capture source. Chunks delivers binary chunks until
// the source finishes or the stream is released; the channel is then closed.
// Release must be called exactly once per acquired stream, on every exit
// path, so the underlying source is never left held.
type Stream interface {
	Chunks() <-chan []byte
	Release()
}

// ChunkStream is the concrete Stream fed by a producer (the WebSocket ingest
// loop in production, test code elsewhere). Push delivers a chunk; CloseSend
// marks the producer side finished. Release is idempotent.
type ChunkStream struct {
	ch        chan []byte
	released  chan struct{}
	closeOnce sync.Once
	relOnce   sync.Once
}

// NewChunkStream creates a chunk stream with the given channel buffer.
func NewChunkStream(buffer int) *ChunkStream {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChunkStream{
		ch:       make(chan []byte, buffer),
		released: make(chan struct{}),
	}
}

// Push delivers one chunk. It returns false once the stream has been
// released; the producer should stop sending.
func (s *ChunkStream) Push(chunk []byte) bool {
	select {
	case <-s.released:
		return false
	default:
	}
	select {
	case s.ch <- chunk:
		return true
	case <-s.released:
		return false
	}
}

// CloseSend marks the producer side finished. No chunks may be pushed after.
func (s *ChunkStream) CloseSend() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// Chunks returns the chunk channel.
func (s *ChunkStream) Chunks() <-chan []byte { return s.ch }

// Release releases the stream. Pending Push calls unblock and return false.
func (s *ChunkStream) Release() {
	s.relOnce.Do(func() { close(s.released) })
}

// Released reports whether Release has been called.
func (s *ChunkStream) Released() bool {
	select {
	case <-s.released:
		return true
	default:
		return false
	}
}
