package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voiceform/backend/internal/models"
)

// ErrClipTooLarge is returned by Stop when the buffered audio exceeded the
// configured limit. The stream is still released; no clip is produced.
var ErrClipTooLarge = errors.New("recorded clip exceeds size limit")

// State is the recording session lifecycle state.
type State int

const (
	// StateIdle: created, not started.
	StateIdle State = iota
	// StatePreparing: stream acquisition in progress.
	StatePreparing
	// StateRecording: chunks are being buffered.
	StateRecording
	// StateDone: stopped or aborted; the session cannot be reused.
	StateDone
)

// Session records one clip: it acquires a stream from its device, buffers
// chunks while recording, and finalizes them into a single clip on Stop.
// A session is single-use; the manager creates one per recording attempt.
type Session struct {
	device   Device
	maxBytes int64

	mu       sync.Mutex
	state    State
	stream   Stream
	buf      bytes.Buffer
	overflow bool

	stop     chan struct{}
	pumpDone chan struct{}
}

// NewSession creates an idle session. maxBytes <= 0 disables the size limit.
func NewSession(device Device, maxBytes int64) *Session {
	return &Session{device: device, maxBytes: maxBytes}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the stream and begins buffering chunks. On acquisition
// failure the session returns to idle without a result and the error wraps
// ErrCaptureUnavailable; Start may be attempted again.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}
	s.state = StatePreparing
	s.mu.Unlock()

	stream, err := s.device.RequestStream(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		if !errors.Is(err, ErrCaptureUnavailable) {
			err = fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
		}
		return err
	}

	s.mu.Lock()
	s.state = StateRecording
	s.stream = stream
	s.stop = make(chan struct{})
	s.pumpDone = make(chan struct{})
	s.mu.Unlock()

	go s.pump(stream)
	return nil
}

// pump drains the stream into the buffer until the producer finishes or the
// session is stopped.
func (s *Session) pump(stream Stream) {
	defer close(s.pumpDone)
	for {
		select {
		case chunk, ok := <-stream.Chunks():
			if !ok {
				return
			}
			s.mu.Lock()
			if s.maxBytes > 0 && int64(s.buf.Len()+len(chunk)) > s.maxBytes {
				s.overflow = true
			} else {
				s.buf.Write(chunk)
			}
			s.mu.Unlock()
		case <-s.stop:
			// Drain chunks that were pushed before the stop.
			for {
				select {
				case chunk, ok := <-stream.Chunks():
					if !ok {
						return
					}
					s.mu.Lock()
					if s.maxBytes > 0 && int64(s.buf.Len()+len(chunk)) > s.maxBytes {
						s.overflow = true
					} else {
						s.buf.Write(chunk)
					}
					s.mu.Unlock()
				default:
					return
				}
			}
		}
	}
}

// Stop finalizes the buffered chunks into one clip and releases the stream.
// Valid only while recording.
func (s *Session) Stop() (models.Clip, error) {
	stream, err := s.finish()
	if err != nil {
		return models.Clip{}, err
	}
	stream.Release()
	close(s.stop)
	<-s.pumpDone

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overflow {
		s.buf.Reset()
		return models.Clip{}, ErrClipTooLarge
	}
	data := make([]byte, s.buf.Len())
	copy(data, s.buf.Bytes())
	s.buf.Reset()
	return models.Clip{
		Data:        data,
		ContentType: models.ClipContentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Abort discards the buffer and releases the stream. Valid only while
// recording.
func (s *Session) Abort() error {
	stream, err := s.finish()
	if err != nil {
		return err
	}
	stream.Release()
	close(s.stop)
	<-s.pumpDone

	s.mu.Lock()
	s.buf.Reset()
	s.mu.Unlock()
	return nil
}

// finish transitions recording -> done and hands back the stream so the
// caller releases it exactly once.
func (s *Session) finish() (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return nil, ErrNotRecording
	}
	s.state = StateDone
	stream := s.stream
	s.stream = nil
	return stream, nil
}
