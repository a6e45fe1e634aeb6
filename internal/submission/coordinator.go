// Package submission orchestrates the one-shot submit flow: validation,
// clip uploads, then a single document write.
package submission

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voiceform/backend/internal/gateway"
	"github.com/voiceform/backend/internal/models"
	"github.com/voiceform/backend/pkg/storage"
)

// uploadConcurrency caps the number of questions uploading at once. Clips
// within one question always upload sequentially so URL order matches clip
// order.
const uploadConcurrency = 4

// Input is everything the coordinator needs for one submission attempt,
// snapshotted from the form session at submit time.
type Input struct {
	Questions []models.Question
	Answers   map[string]models.Answer
	Consent   bool
	// OnProgress receives overall percentages in [0,100], monotonically
	// non-decreasing within the attempt. Optional.
	OnProgress func(pct int)
}

// Receipt is the successful outcome of a submission.
type Receipt struct {
	DocumentID string
	Record     models.Submission
}

// Coordinator runs the submit pipeline against the injected gateway handles.
type Coordinator struct {
	blobs gateway.BlobStore
	docs  gateway.DocumentStore
	log   *zap.Logger
	now   func() time.Time
}

// NewCoordinator creates a submission coordinator.
func NewCoordinator(blobs gateway.BlobStore, docs gateway.DocumentStore, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{blobs: blobs, docs: docs, log: log, now: time.Now}
}

// Submit validates the answer set, uploads every clip, builds the immutable
// submission record, and writes it as one document. Any failure aborts the
// attempt; answers are never modified, so the caller may retry.
func (c *Coordinator) Submit(ctx context.Context, in Input) (*Receipt, error) {
	if err := c.validate(in); err != nil {
		return nil, err
	}

	submittedAt := c.now().UTC()
	timestamp := submittedAt.Format(time.RFC3339)

	urls, err := c.uploadClips(ctx, timestamp, in)
	if err != nil {
		return nil, err
	}

	record := buildRecord(timestamp, submittedAt, in.Questions, in.Answers, urls)
	id, err := c.docs.CreateDocument(ctx, gateway.CollectionInterviews, record)
	if err != nil {
		c.log.Error("document write failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	report(in.OnProgress, 100)
	c.log.Info("interview submitted",
		zap.String("document_id", id),
		zap.Int("answered", record.Metadata.AnsweredQuestions),
		zap.Int("with_audio", record.Metadata.QuestionsWithAudio))
	return &Receipt{DocumentID: id, Record: record}, nil
}

// validate fails fast with zero I/O when any question is unanswered or
// consent is missing.
func (c *Coordinator) validate(in Input) error {
	var missing []string
	for _, q := range in.Questions {
		if !in.Answers[q.Key].Answered() {
			missing = append(missing, q.Key)
		}
	}
	if len(missing) > 0 {
		return &IncompleteError{QuestionIDs: missing}
	}
	if !in.Consent {
		return ErrConsentRequired
	}
	return nil
}

// uploadClips uploads every clip, fanning out across questions and keeping
// clip order within each question. Returns question key -> URLs in clip
// order. With zero clips the progress jumps to the 50% midpoint so the
// write phase is visibly imminent.
func (c *Coordinator) uploadClips(ctx context.Context, timestamp string, in Input) (map[string][]string, error) {
	total := 0
	for _, q := range in.Questions {
		total += len(in.Answers[q.Key].Clips)
	}
	report(in.OnProgress, 0)
	if total == 0 {
		report(in.OnProgress, 50)
		return map[string][]string{}, nil
	}

	var (
		mu        sync.Mutex
		completed int
		urls      = make(map[string][]string, len(in.Questions))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, q := range in.Questions {
		answer := in.Answers[q.Key]
		if len(answer.Clips) == 0 {
			continue
		}
		q := q
		g.Go(func() error {
			questionURLs := make([]string, 0, len(answer.Clips))
			for i, clip := range answer.Clips {
				key := storage.ClipKey(timestamp, q.Key, i+1, models.ClipExt)
				url, err := c.blobs.UploadBlob(gctx, clip.Data, key, clip.ContentType, map[string]string{
					"time-created": clip.CreatedAt.UTC().Format(time.RFC3339),
				})
				if err != nil {
					return &UploadError{QuestionID: q.Key, Err: err}
				}
				questionURLs = append(questionURLs, url)

				// Report under the lock so concurrent uploads cannot
				// deliver percentages out of order. 100 is reserved for
				// the document write; uploads alone never reach it.
				mu.Lock()
				completed++
				report(in.OnProgress, min(99, completed*100/total))
				mu.Unlock()
			}
			mu.Lock()
			urls[q.Key] = questionURLs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Error("clip upload failed", zap.Error(err))
		return nil, err
	}
	return urls, nil
}

// buildRecord constructs the immutable submission record in question order.
func buildRecord(timestamp string, submittedAt time.Time, questions []models.Question, answers map[string]models.Answer, urls map[string][]string) models.Submission {
	out := make([]models.SubmissionAnswer, 0, len(questions))
	answered := 0
	withAudio := 0
	for _, q := range questions {
		answer := answers[q.Key]
		questionURLs := urls[q.Key]
		if questionURLs == nil {
			questionURLs = []string{}
		}
		if answer.Answered() {
			answered++
		}
		if len(questionURLs) > 0 {
			withAudio++
		}
		out = append(out, models.SubmissionAnswer{
			QuestionID:   q.Key,
			QuestionText: q.Text,
			TextAnswer:   strings.TrimSpace(answer.Text),
			AudioURLs:    questionURLs,
			HasAudio:     len(questionURLs) > 0,
		})
	}
	return models.Submission{
		Timestamp:   timestamp,
		SubmittedAt: submittedAt,
		Answers:     out,
		Metadata: models.SubmissionMetadata{
			TotalQuestions:     len(questions),
			AnsweredQuestions:  answered,
			QuestionsWithAudio: withAudio,
		},
	}
}

func report(fn func(int), pct int) {
	if fn != nil {
		fn(pct)
	}
}
