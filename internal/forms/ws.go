package forms

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voiceform/backend/internal/capture"
	"github.com/voiceform/backend/pkg/response"
	"github.com/voiceform/backend/pkg/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP surface; ws carries no credentials
	},
}

// recordAck is sent after a clip is finalized and attached to its slot.
type recordAck struct {
	Event      string `json:"event"`
	QuestionID string `json:"question_id"`
	ClipIndex  int    `json:"clip_index"`
	Size       int64  `json:"size"`
	Progress   int    `json:"progress"`
}

// Record handles GET /ws/forms/:id/record?question=qN. The connection is the
// capture stream: binary messages are audio chunks, a "stop" text message
// finalizes the clip, a "cancel" text message or disconnect discards it. One
// clip per connection.
func (h *Handler) Record(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	questionID := c.Query("question")
	if _, ok := form.Questionnaire().Get(questionID); !ok {
		response.NotFound(c, "unknown question")
		return
	}
	if err := form.EnsureEditable(); err != nil {
		h.formError(c, err)
		return
	}
	confirmed := c.Query("confirm") == "true"

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(storage.MaxClipFileSize)

	stream := capture.NewChunkStream(64)
	if err := h.capture.Start(c.Request.Context(), form.ID(), questionID, capture.StaticDevice(stream)); err != nil {
		h.writeWsError(conn, "capture_unavailable", err)
		return
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			// Client went away mid-recording: discard and release.
			_ = h.capture.Abort(form.ID(), questionID)
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			if !stream.Push(data) {
				_ = h.capture.Abort(form.ID(), questionID)
				return
			}
		case websocket.TextMessage:
			switch string(data) {
			case "stop":
				stream.CloseSend()
				h.finishRecording(conn, form, questionID, confirmed)
				return
			case "cancel":
				_ = h.capture.Abort(form.ID(), questionID)
				_ = conn.WriteJSON(gin.H{"event": "recording_cancelled", "question_id": questionID})
				return
			}
		}
	}
}

// finishRecording finalizes the clip and attaches it to the answer slot.
func (h *Handler) finishRecording(conn *websocket.Conn, form *FormSession, questionID string, confirmed bool) {
	clip, err := h.capture.Stop(form.ID(), questionID)
	if err != nil {
		h.writeWsError(conn, "recording_failed", err)
		return
	}
	if err := form.AddClip(questionID, clip, confirmed); err != nil {
		code := "recording_failed"
		if errors.Is(err, ErrConfirmRequired) {
			code = "confirm_required"
		}
		h.writeWsError(conn, code, err)
		return
	}
	view := form.View()
	index := 0
	for _, a := range view.Answers {
		if a.QuestionID == questionID {
			index = len(a.Clips) - 1
		}
	}
	_ = conn.WriteJSON(recordAck{
		Event:      "clip_saved",
		QuestionID: questionID,
		ClipIndex:  index,
		Size:       clip.Size,
		Progress:   view.Progress,
	})
}

func (h *Handler) writeWsError(conn *websocket.Conn, code string, err error) {
	h.log.Warn("recording error", zap.String("code", code), zap.Error(err))
	_ = conn.WriteJSON(gin.H{"event": "error", "code": code, "error": err.Error()})
}
