package forms

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voiceform/backend/internal/capture"
	"github.com/voiceform/backend/internal/submission"
	"github.com/voiceform/backend/pkg/response"
)

// Handler exposes the form surface over HTTP.
type Handler struct {
	store       *Store
	capture     *capture.Manager
	coordinator *submission.Coordinator
	log         *zap.Logger
}

// NewHandler creates a forms handler.
func NewHandler(store *Store, captureMgr *capture.Manager, coordinator *submission.Coordinator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, capture: captureMgr, coordinator: coordinator, log: log}
}

// OpenRequest is the body for POST /forms. FormID resumes an earlier form
// from its draft when set.
type OpenRequest struct {
	FormID string `json:"form_id"`
}

// Open handles POST /forms.
func (h *Handler) Open(c *gin.Context) {
	var req OpenRequest
	// Empty body means a fresh form.
	_ = c.ShouldBindJSON(&req)

	if req.FormID != "" {
		formID, err := uuid.Parse(req.FormID)
		if err != nil {
			response.BadRequest(c, "invalid form id")
			return
		}
		form, err := h.store.Resume(c.Request.Context(), formID)
		if errors.Is(err, ErrFormNotFound) {
			response.NotFound(c, "form not found")
			return
		}
		if err != nil {
			response.Internal(c, "failed to resume form")
			return
		}
		response.OK(c, form.View())
		return
	}

	form := h.store.Open()
	response.Created(c, form.View())
}

// Get handles GET /forms/:id.
func (h *Handler) Get(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	response.OK(c, form.View())
}

// TextRequest is the body for PUT /forms/:id/answers/:questionId/text.
type TextRequest struct {
	Text string `json:"text"`
}

// SetText handles PUT /forms/:id/answers/:questionId/text.
func (h *Handler) SetText(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := form.SetText(c.Param("questionId"), req.Text); err != nil {
		h.formError(c, err)
		return
	}
	h.store.SaveDraft(c.Request.Context(), form)
	response.OK(c, gin.H{"question_id": c.Param("questionId"), "progress": form.Progress()})
}

// DeleteClip handles DELETE /forms/:id/answers/:questionId/clips/:index.
// The destructive step requires ?confirm=true.
func (h *Handler) DeleteClip(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	index, ok := clipIndex(c)
	if !ok {
		return
	}
	confirmed := c.Query("confirm") == "true"
	if err := form.DeleteClip(c.Param("questionId"), index, confirmed); err != nil {
		h.formError(c, err)
		return
	}
	response.OK(c, gin.H{"question_id": c.Param("questionId"), "progress": form.Progress()})
}

// ClipData handles GET /forms/:id/answers/:questionId/clips/:index, serving
// the clip bytes for local preview. The handle stops resolving once the clip
// is deleted or superseded.
func (h *Handler) ClipData(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	index, ok := clipIndex(c)
	if !ok {
		return
	}
	clip, err := form.Clip(c.Param("questionId"), index)
	if err != nil {
		h.formError(c, err)
		return
	}
	c.Data(http.StatusOK, clip.ContentType, clip.Data)
}

// ConsentRequest is the body for PUT /forms/:id/consent.
type ConsentRequest struct {
	Consent bool `json:"consent"`
}

// SetConsent handles PUT /forms/:id/consent.
func (h *Handler) SetConsent(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var req ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := form.SetConsent(req.Consent); err != nil {
		h.formError(c, err)
		return
	}
	h.store.SaveDraft(c.Request.Context(), form)
	response.OK(c, gin.H{"consent": req.Consent})
}

// GetProgress handles GET /forms/:id/progress.
func (h *Handler) GetProgress(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{
		"progress":        form.Progress(),
		"submit_progress": form.SubmitProgress(),
	})
}

// Submit handles POST /forms/:id/submit: validation, clip uploads, then one
// document write. On failure the form stays interactive with answers intact.
func (h *Handler) Submit(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	if err := form.BeginSubmit(); err != nil {
		h.formError(c, err)
		return
	}

	answers, consent := form.Snapshot()
	receipt, err := h.coordinator.Submit(c.Request.Context(), submission.Input{
		Questions:  form.Questionnaire().Questions(),
		Answers:    answers,
		Consent:    consent,
		OnProgress: form.SetSubmitProgress,
	})
	if err != nil {
		form.FailSubmit()
		h.submitError(c, err)
		return
	}

	form.FinishSubmit(receipt.DocumentID)
	h.store.DropDraft(c.Request.Context(), form.ID())
	response.OK(c, gin.H{
		"document_id": receipt.DocumentID,
		"state":       StateSubmitted,
		"metadata":    receipt.Record.Metadata,
	})
}

// form resolves the :id path parameter to a live session, replying on error.
func (h *Handler) form(c *gin.Context) (*FormSession, bool) {
	formID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid form id")
		return nil, false
	}
	form, ok := h.store.Get(formID)
	if !ok {
		response.NotFound(c, "form not found")
		return nil, false
	}
	return form, true
}

func clipIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.BadRequest(c, "invalid clip index")
		return 0, false
	}
	return index, true
}

// formError maps form/slot errors to HTTP responses.
func (h *Handler) formError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownQuestion), errors.Is(err, ErrClipNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrConfirmRequired):
		response.Fail(c, http.StatusConflict, "confirm_required", err.Error())
	case errors.Is(err, ErrFormSubmitted):
		response.Fail(c, http.StatusConflict, "form_submitted", err.Error())
	case errors.Is(err, ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, "submit_in_flight", err.Error())
	default:
		response.Internal(c, err.Error())
	}
}

// submitError maps the submission error taxonomy to HTTP responses.
func (h *Handler) submitError(c *gin.Context, err error) {
	var incomplete *submission.IncompleteError
	var upload *submission.UploadError
	switch {
	case errors.As(err, &incomplete):
		response.Fail(c, http.StatusBadRequest, "incomplete_answers", incomplete.Error())
	case errors.Is(err, submission.ErrConsentRequired):
		response.Fail(c, http.StatusBadRequest, "consent_required", err.Error())
	case errors.As(err, &upload):
		response.Fail(c, http.StatusBadGateway, "upload_failed", upload.Error())
	case errors.Is(err, submission.ErrPersistFailed):
		response.Fail(c, http.StatusBadGateway, "persist_failed", err.Error())
	default:
		response.Internal(c, err.Error())
	}
}
