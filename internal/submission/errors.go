package submission

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConsentRequired is returned when the consent flag is not affirmed.
// Validation fails before any network call is issued.
var ErrConsentRequired = errors.New("consent required before submission")

// ErrPersistFailed is returned when the document write fails after all
// uploads succeeded. No partial document is left behind.
var ErrPersistFailed = errors.New("failed to persist submission")

// IncompleteError reports which questions do not satisfy the non-empty rule.
// Validation fails before any network call is issued.
type IncompleteError struct {
	QuestionIDs []string
}

func (e *IncompleteError) Error() string {
	return "unanswered questions: " + strings.Join(e.QuestionIDs, ", ")
}

// UploadError reports a clip upload failure for one question. The whole
// submission is aborted; already-uploaded sibling files are not rolled back.
type UploadError struct {
	QuestionID string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for question %s: %v", e.QuestionID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
