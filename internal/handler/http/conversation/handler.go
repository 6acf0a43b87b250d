package conversation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketchat-backend/internal/middleware"
	"marketchat-backend/internal/service/conversation"
	"marketchat-backend/pkg/response"
)

// Handler handles conversation HTTP requests
type Handler struct {
	conversationService *conversation.Service
}

// NewHandler creates a new conversation handler
func NewHandler(conversationService *conversation.Service) *Handler {
	return &Handler{conversationService: conversationService}
}

// OpenConversationRequest identifies the other participant
type OpenConversationRequest struct {
	OtherUserID string `json:"other_user_id" binding:"required,uuid"`
}

// Open returns the conversation with another user, creating it on first
// contact. Repeated and concurrent calls for the same pair return the
// same conversation.
// POST /v1/conversations
func (h *Handler) Open(c *gin.Context) {
	var req OpenConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	requesterID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	otherUserID, err := uuid.Parse(req.OtherUserID)
	if err != nil {
		response.ValidationError(c, "Invalid other_user_id")
		return
	}

	output, err := h.conversationService.GetOrCreate(c.Request.Context(), requesterID, otherUserID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	status := http.StatusOK
	if output.Created {
		status = http.StatusCreated
	}
	response.Success(c, status, output.Conversation)
}

// List returns the caller's conversations, most recently active first,
// with previews and unread counts. The conversation screen polls this.
// GET /v1/conversations
func (h *Handler) List(c *gin.Context) {
	viewerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	summaries, err := h.conversationService.ListForUser(c.Request.Context(), viewerID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"conversations": summaries,
		"count":         len(summaries),
	})
}
