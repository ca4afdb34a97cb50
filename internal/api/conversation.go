package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/careline/internal/middleware"
)

type ConversationHandler struct {
	svc    MessagingService
	logger *zap.Logger
}

func NewConversationHandler(svc MessagingService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{svc: svc, logger: logger}
}

// parsePage reads page/limit query params with defaults and a cap.
// Returns ok=false after writing a 400 when a param is malformed.
func parsePage(c *gin.Context, defaultLimit, maxLimit int) (page, limit int, ok bool) {
	page = 1
	if p := c.Query("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'page' parameter"})
			return 0, 0, false
		}
		page = n
	}

	limit = defaultLimit
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return 0, 0, false
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, true
}

// List handles GET /v1/conversations?page=&limit=
//
// The shape is {conversations: [...], meta: {total, page, limit}} — a
// patient with no clinical record yet gets an empty list and total 0,
// because "no record" is a normal state, not an error.
func (h *ConversationHandler) List(c *gin.Context) {
	page, limit, ok := parsePage(c, 20, 100)
	if !ok {
		return
	}

	actor := middleware.GetActor(c)
	result, err := h.svc.ListConversations(c.Request.Context(), actor, page, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": result.Conversations,
		"meta": gin.H{
			"total": result.Total,
			"page":  page,
			"limit": limit,
		},
	})
}

// Get handles GET /v1/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	actor := middleware.GetActor(c)
	conv, err := h.svc.GetConversation(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ListMessages handles GET /v1/conversations/:id/messages?page=&limit=&before=
//
// Two pagination mechanisms coexist: page/limit offsets through the
// ascending log, and "before" (RFC3339) is the load-older cursor
// restricting to messages strictly earlier than the timestamp.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	page, limit, ok := parsePage(c, 50, 100)
	if !ok {
		return
	}

	var before *time.Time
	if b := c.Query("before"); b != "" {
		t, err := time.Parse(time.RFC3339, b)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' parameter, expected RFC3339"})
			return
		}
		before = &t
	}

	actor := middleware.GetActor(c)
	messages, err := h.svc.ListMessages(c.Request.Context(), actor, id, page, limit, before)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// MarkRead handles POST /v1/conversations/:id/read
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	actor := middleware.GetActor(c)
	count, err := h.svc.MarkRead(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": count})
}
