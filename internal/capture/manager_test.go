package capture

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerOneRecordingPerQuestion(t *testing.T) {
	m := NewManager(0, nil)
	formID := uuid.New()

	first := NewChunkStream(4)
	require.NoError(t, m.Start(context.Background(), formID, "q0", StaticDevice(first)))
	assert.True(t, m.Active(formID, "q0"))

	err := m.Start(context.Background(), formID, "q0", StaticDevice(NewChunkStream(4)))
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	// A different question records independently.
	other := NewChunkStream(4)
	require.NoError(t, m.Start(context.Background(), formID, "q1", StaticDevice(other)))

	first.CloseSend()
	_, err = m.Stop(formID, "q0")
	require.NoError(t, err)
	assert.False(t, m.Active(formID, "q0"))

	require.NoError(t, m.Abort(formID, "q1"))
	assert.True(t, other.Released())
}

func TestManagerStopProducesClip(t *testing.T) {
	m := NewManager(0, nil)
	formID := uuid.New()
	stream := NewChunkStream(4)

	require.NoError(t, m.Start(context.Background(), formID, "q3", StaticDevice(stream)))
	require.True(t, stream.Push([]byte("audio")))
	stream.CloseSend()

	clip, err := m.Stop(formID, "q3")
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), clip.Data)
	assert.True(t, stream.Released())
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(0, nil)
	_, err := m.Stop(uuid.New(), "q0")
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestManagerFailedStartLeavesNoSession(t *testing.T) {
	m := NewManager(0, nil)
	formID := uuid.New()
	denied := DeviceFunc(func(ctx context.Context) (Stream, error) {
		return nil, ErrCaptureUnavailable
	})

	err := m.Start(context.Background(), formID, "q0", denied)
	require.ErrorIs(t, err, ErrCaptureUnavailable)
	assert.False(t, m.Active(formID, "q0"))

	// The question is free to record again.
	stream := NewChunkStream(4)
	require.NoError(t, m.Start(context.Background(), formID, "q0", StaticDevice(stream)))
	require.NoError(t, m.Abort(formID, "q0"))
}

func TestManagerShutdownReleasesStreams(t *testing.T) {
	m := NewManager(0, nil)
	formID := uuid.New()
	a := NewChunkStream(4)
	b := NewChunkStream(4)
	require.NoError(t, m.Start(context.Background(), formID, "q0", StaticDevice(a)))
	require.NoError(t, m.Start(context.Background(), formID, "q1", StaticDevice(b)))

	m.Shutdown()

	assert.True(t, a.Released())
	assert.True(t, b.Released())
	assert.False(t, m.Active(formID, "q0"))
	assert.False(t, m.Active(formID, "q1"))
}
