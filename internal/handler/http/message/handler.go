package message

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketchat-backend/internal/domain"
	"marketchat-backend/internal/middleware"
	"marketchat-backend/internal/service/message"
	"marketchat-backend/pkg/pagination"
	"marketchat-backend/pkg/response"
)

// Handler handles message HTTP requests
type Handler struct {
	messageService *message.Service
}

// NewHandler creates a new message handler
func NewHandler(messageService *message.Service) *Handler {
	return &Handler{messageService: messageService}
}

// AttachmentRequest references a previously uploaded object
type AttachmentRequest struct {
	FileURL      string  `json:"file_url" binding:"required"`
	FileName     string  `json:"file_name" binding:"required"`
	FileType     string  `json:"file_type" binding:"required"`
	FileSize     int64   `json:"file_size" binding:"required,min=1"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	Duration     *int    `json:"duration,omitempty"`
}

// AppendRequest represents an append request. Message id, timestamp, and
// status are server-assigned and absent here.
type AppendRequest struct {
	Kind        string              `json:"kind" binding:"required,oneof=text audio video image file emoji"`
	Content     *string             `json:"content,omitempty"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

// Append appends a message to a conversation. An Idempotency-Key header
// makes transport-level retries safe.
// POST /v1/conversations/:id/messages
func (h *Handler) Append(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	senderID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	kind, err := domain.ParseMessageKind(req.Kind)
	if err != nil {
		response.ValidationError(c, "Invalid message kind")
		return
	}

	input := &message.AppendInput{
		ConversationID:   conversationID,
		SenderID:         senderID,
		Kind:             kind,
		Content:          req.Content,
		IdempotencyToken: c.GetHeader("Idempotency-Key"),
	}
	for _, a := range req.Attachments {
		input.Attachments = append(input.Attachments, &domain.AttachmentInput{
			FileURL:      a.FileURL,
			FileName:     a.FileName,
			FileType:     a.FileType,
			FileSize:     a.FileSize,
			ThumbnailURL: a.ThumbnailURL,
			Duration:     a.Duration,
		})
	}

	created, err := h.messageService.Append(c.Request.Context(), input)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// List returns one page of history. Page 1 is the newest window; the
// client walks backward by requesting higher pages.
// GET /v1/conversations/:id/messages?page=1&limit=20
func (h *Handler) List(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	viewerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	params, err := pagination.Parse(c.Query("page"), c.Query("limit"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	output, err := h.messageService.ListPage(c.Request.Context(), &message.ListPageInput{
		ConversationID: conversationID,
		ViewerID:       viewerID,
		Page:           params.Page,
		PageSize:       params.Limit,
	})
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"messages":  output.Messages,
		"page":      output.Page,
		"page_size": output.PageSize,
		"has_more":  output.HasMore,
	})
}

// MarkRead transitions the caller's unread incoming messages to read.
// Idempotent; clients fire it on every poll while the conversation is open.
// POST /v1/conversations/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid conversation ID")
		return
	}

	viewerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	count, err := h.messageService.MarkConversationRead(c.Request.Context(), conversationID, viewerID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"marked_read": count})
}

// Delete removes a message. Sender-only.
// DELETE /v1/messages/:id
func (h *Handler) Delete(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid message ID")
		return
	}

	callerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.messageService.Delete(c.Request.Context(), messageID, callerID); err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
