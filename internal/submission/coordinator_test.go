package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceform/backend/internal/models"
	"github.com/voiceform/backend/internal/questionnaire"
)

type uploadCall struct {
	Path        string
	ContentType string
	Data        []byte
}

type fakeBlobStore struct {
	mu      sync.Mutex
	uploads []uploadCall
	failOn  string // substring of path that triggers failure
}

func (f *fakeBlobStore) UploadBlob(ctx context.Context, data []byte, path, contentType string, metadata map[string]string) (string, error) {
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return "", errors.New("storage unreachable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, uploadCall{Path: path, ContentType: contentType, Data: data})
	return "https://blobs.test/" + path, nil
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type fakeDocStore struct {
	mu      sync.Mutex
	created []any
	fail    error
}

func (f *fakeDocStore) CreateDocument(ctx context.Context, collection string, record any) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, record)
	return fmt.Sprintf("doc-%d", len(f.created)), nil
}

func (f *fakeDocStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type progressRecorder struct {
	mu     sync.Mutex
	values []int
}

func (p *progressRecorder) record(pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, pct)
}

func (p *progressRecorder) sequence() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.values))
	copy(out, p.values)
	return out
}

func testClip(data string) models.Clip {
	return models.Clip{
		Data:        []byte(data),
		ContentType: models.ClipContentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func textAnswers(qn *questionnaire.Questionnaire) map[string]models.Answer {
	answers := make(map[string]models.Answer, qn.Len())
	for _, q := range qn.Questions() {
		answers[q.Key] = models.Answer{Text: "answer for " + q.Key}
	}
	return answers
}

func TestSubmitIncompleteAnswersNoIO(t *testing.T) {
	qn := questionnaire.New("t", []string{"a?", "b?", "c?"})
	blobs := &fakeBlobStore{}
	docs := &fakeDocStore{}
	c := NewCoordinator(blobs, docs, nil)

	answers := textAnswers(qn)
	answers["q1"] = models.Answer{Text: "   "} // whitespace does not count

	_, err := c.Submit(context.Background(), Input{
		Questions: qn.Questions(),
		Answers:   answers,
		Consent:   true,
	})

	var incomplete *IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"q1"}, incomplete.QuestionIDs)
	// Validation precedes all I/O.
	assert.Zero(t, blobs.count())
	assert.Zero(t, docs.count())
}

func TestSubmitConsentRequiredNoIO(t *testing.T) {
	qn := questionnaire.New("t", []string{"a?", "b?"})
	blobs := &fakeBlobStore{}
	docs := &fakeDocStore{}
	c := NewCoordinator(blobs, docs, nil)

	_, err := c.Submit(context.Background(), Input{
		Questions: qn.Questions(),
		Answers:   textAnswers(qn),
		Consent:   false,
	})

	require.ErrorIs(t, err, ErrConsentRequired)
	assert.Zero(t, blobs.count())
	assert.Zero(t, docs.count())
}

func TestSubmitTextOnlyProgressSequence(t *testing.T) {
	qn := questionnaire.Default() // 10 questions
	blobs := &fakeBlobStore{}
	docs := &fakeDocStore{}
	c := NewCoordinator(blobs, docs, nil)
	progress := &progressRecorder{}

	receipt, err := c.Submit(context.Background(), Input{
		Questions:  qn.Questions(),
		Answers:    textAnswers(qn),
		Consent:    true,
		OnProgress: progress.record,
	})
	require.NoError(t, err)

	// Upload phase skipped: midpoint, then completion.
	assert.Equal(t, []int{0, 50, 100}, progress.sequence())
	assert.Zero(t, blobs.count())
	assert.Equal(t, 1, docs.count())
	assert.Equal(t, 10, receipt.Record.Metadata.TotalQuestions)
	assert.Equal(t, 10, receipt.Record.Metadata.AnsweredQuestions)
	assert.Equal(t, 0, receipt.Record.Metadata.QuestionsWithAudio)
}

func TestSubmitRoundTrip(t *testing.T) {
	qn := questionnaire.New("t", []string{"a?", "b?"})
	blobs := &fakeBlobStore{}
	docs := &fakeDocStore{}
	c := NewCoordinator(blobs, docs, nil)

	clipA := testClip("clip-a")
	receipt, err := c.Submit(context.Background(), Input{
		Questions: qn.Questions(),
		Answers: map[string]models.Answer{
			"q0": {Text: "hello"},
			"q1": {Clips: []models.Clip{clipA}},
		},
		Consent: true,
	})
	require.NoError(t, err)

	record := receipt.Record
	assert.Equal(t, 2, record.Metadata.AnsweredQuestions)
	assert.Equal(t, 1, record.Metadata.QuestionsWithAudio)
	require.Len(t, record.Answers, 2)

	assert.Equal(t, "q0", record.Answers[0].QuestionID)
	assert.Equal(t, "hello", record.Answers[0].TextAnswer)
	assert.False(t, record.Answers[0].HasAudio)
	assert.Empty(t, record.Answers[0].AudioURLs)

	assert.True(t, record.Answers[1].HasAudio)
	require.Len(t, record.Answers[1].AudioURLs, 1)
	expectedPath := fmt.Sprintf("interviews/%s/q1_audio1.webm", record.Timestamp)
	assert.Equal(t, "https://blobs.test/"+expectedPath, record.Answers[1].AudioURLs[0])

	require.Equal(t, 1, blobs.count())
	assert.Equal(t, models.ClipContentType, blobs.uploads[0].ContentType)
	assert.Equal(t, []byte("clip-a"), blobs.uploads[0].Data)
}

func TestSubmitClipOrderWithinQuestion(t *testing.T) {
	qn := questionnaire.New("t", []string{"a?"})
	blobs := &fakeBlobStore{}
	docs := &fakeDocStore{}
	c := NewCoordinator(blobs, docs, nil)

	receipt, err := c.Submit(context.Background(), Input{
		Questions: qn.Questions(),
		Answers: map[string]models.Answer{
			"q0": {Clips: []models.Clip{testClip("one"), testClip("two"), testClip("three")}},
		},
		Consent: true,
	})
	require.NoError(t, err)

	urls := receipt.Record.Answers[0].AudioURLs
	require.Len(t, urls, 3)
	assert.Contains(t, urls[0], "q0_audio1.webm")
	assert.Contains(t, urls[1], "q0_audio2.webm")
	assert.Contains(t, urls[2], "q0_audio3.webm")
}

func TestSubmitProgressMonotonicWithClips(t *testing.T) {
	qn := questionnaire.New("t", []string{"a?", "b?", "c?"})
	blobs := &fakeBlobStore{}
	docs := &fakeDocStore{}
	c := NewCoordinator(blobs, docs, nil)
	progress := &progressRecorder{}

	answers := map[string]models.Answer{
		"q0": {Clips: []models.Clip{testClip("1"), testClip("2")}},
		"q1": {Text: "text"},
		"q2": {Clips: []models.Clip{testClip("3"), testClip("4")}},
	}
	_, err := c.Submit(context.Background(), Input{
		Questions:  qn.Questions(),
		Answers:    answers,
		Consent:    true,
		OnProgress: progress.record,
	})
	require.NoError(t, err)

	seq := progress.sequence()
	require.NotEmpty(t, seq)
	for i := 1; i < len(seq); i++ {
		assert.GreaterOrEqual(t, seq[i], seq[i-1], "progress must be non-decreasing: %v", seq)
	}
	assert.Equal(t, 100, seq[len(seq)-1])
	assert.Equal(t, 4, blobs.count())
	assert.Equal(t, 1, docs.count())
}

func TestSubmitUploadFailureAborts(t *testing.T) {
	qn := questionnaire.Default()
	blobs := &fakeBlobStore{failOn: "q3_"}
	docs := &fakeDocStore{}
	c := NewCoordinator(blobs, docs, nil)

	answers := textAnswers(qn)
	answers["q3"] = models.Answer{Clips: []models.Clip{testClip("doomed")}}

	_, err := c.Submit(context.Background(), Input{
		Questions: qn.Questions(),
		Answers:   answers,
		Consent:   true,
	})

	var upload *UploadError
	require.ErrorAs(t, err, &upload)
	assert.Equal(t, "q3", upload.QuestionID)
	// No document is created on a partial upload.
	assert.Zero(t, docs.count())
}

func TestSubmitPersistFailure(t *testing.T) {
	qn := questionnaire.New("t", []string{"a?"})
	blobs := &fakeBlobStore{}
	docs := &fakeDocStore{fail: errors.New("connection reset")}
	c := NewCoordinator(blobs, docs, nil)
	progress := &progressRecorder{}

	_, err := c.Submit(context.Background(), Input{
		Questions:  qn.Questions(),
		Answers:    map[string]models.Answer{"q0": {Text: "x"}},
		Consent:    true,
		OnProgress: progress.record,
	})

	require.ErrorIs(t, err, ErrPersistFailed)
	seq := progress.sequence()
	assert.NotContains(t, seq, 100, "completion must not be reported on persist failure")
}

func TestSubmitPersistFailureWithClips(t *testing.T) {
	qn := questionnaire.New("t", []string{"a?", "b?"})
	blobs := &fakeBlobStore{}
	docs := &fakeDocStore{fail: errors.New("connection reset")}
	c := NewCoordinator(blobs, docs, nil)
	progress := &progressRecorder{}

	_, err := c.Submit(context.Background(), Input{
		Questions: qn.Questions(),
		Answers: map[string]models.Answer{
			"q0": {Clips: []models.Clip{testClip("a"), testClip("b")}},
			"q1": {Text: "text"},
		},
		Consent:    true,
		OnProgress: progress.record,
	})

	require.ErrorIs(t, err, ErrPersistFailed)
	// Every upload finished, yet completion is never reported: 100 belongs
	// to the document write alone.
	assert.Equal(t, 2, blobs.count())
	seq := progress.sequence()
	assert.NotContains(t, seq, 100, "completion must not be reported on persist failure: %v", seq)
}

func TestSubmitTrimsTextAnswers(t *testing.T) {
	qn := questionnaire.New("t", []string{"a?"})
	c := NewCoordinator(&fakeBlobStore{}, &fakeDocStore{}, nil)

	receipt, err := c.Submit(context.Background(), Input{
		Questions: qn.Questions(),
		Answers:   map[string]models.Answer{"q0": {Text: "  padded  "}},
		Consent:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "padded", receipt.Record.Answers[0].TextAnswer)
}
