package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/careline/internal/apperr"
	"github.com/careloop/careline/internal/messaging"
	"github.com/careloop/careline/internal/middleware"
)

type MessageHandler struct {
	svc    MessagingService
	logger *zap.Logger
}

func NewMessageHandler(svc MessagingService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, logger: logger}
}

// sendMessageRequest is the compose body. conversation_id targets an
// existing thread; without it the thread is found or created implicitly
// (patients may name a staff member, staff must name the patient).
type sendMessageRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id"`
	PatientID      *uuid.UUID `json:"patient_id"`
	StaffMemberID  *uuid.UUID `json:"staff_member_id"`
	Content        string     `json:"content"`
	ImageURL       string     `json:"image_url"`
}

// validateShape is the request-shape validator: a message must carry
// non-empty trimmed text OR a well-formed relative image path, checked
// here BEFORE the append path runs — the store itself does not
// re-validate, it relies on this ordering.
func validateShape(req *sendMessageRequest) error {
	content := strings.TrimSpace(req.Content)
	if content == "" && req.ImageURL == "" {
		return apperr.ErrMessageBodyRequired
	}
	if req.ImageURL != "" {
		// Uploads are stored under a relative path handed out by the
		// upload service; absolute URLs and traversal are rejected.
		if strings.Contains(req.ImageURL, "://") ||
			strings.HasPrefix(req.ImageURL, "/") ||
			strings.Contains(req.ImageURL, "..") {
			return apperr.ErrInvalidImagePath
		}
	}
	return nil
}

// Send handles POST /v1/messages
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateShape(&req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	actor := middleware.GetActor(c)
	msg, err := h.svc.Send(c.Request.Context(), actor, messaging.SendInput{
		ConversationID: req.ConversationID,
		PatientID:      req.PatientID,
		StaffMemberID:  req.StaffMemberID,
		Content:        req.Content,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Delete handles DELETE /v1/messages/:id — sender-only.
func (h *MessageHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	actor := middleware.GetActor(c)
	msg, err := h.svc.DeleteMessage(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// UnreadCount handles GET /v1/unread-count
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	actor := middleware.GetActor(c)
	count, err := h.svc.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
