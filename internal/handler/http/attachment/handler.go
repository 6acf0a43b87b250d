package attachment

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketchat-backend/internal/middleware"
	"marketchat-backend/internal/service/attachment"
	"marketchat-backend/internal/service/storage"
	"marketchat-backend/pkg/errors"
	"marketchat-backend/pkg/logger"
	"marketchat-backend/pkg/metrics"
	"marketchat-backend/pkg/response"
)

// Handler handles attachment upload requests
type Handler struct {
	storageService *storage.Service
	metrics        *metrics.Metrics
}

// NewHandler creates a new attachment handler
func NewHandler(storageService *storage.Service, m *metrics.Metrics) *Handler {
	return &Handler{storageService: storageService, metrics: m}
}

// Upload accepts one multipart file, classifies it by declared MIME type,
// and stores it. Validation runs before any bytes reach the object store;
// a rejected upload costs no storage I/O. The response carries the
// metadata a subsequent message append references.
// POST /v1/attachments
func (h *Handler) Upload(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.metrics.RecordUploadRejected("missing_file")
		response.ValidationError(c, "A file part is required")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	kind, err := attachment.Classify(mimeType, fileHeader.Size)
	if err != nil {
		h.metrics.RecordUploadRejected(rejectionReason(err))
		response.AppError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "Failed to read upload")
		return
	}
	defer file.Close()

	fileName := sanitizeFileName(fileHeader.Filename)
	stored, err := h.storageService.Store(c.Request.Context(), ownerID, file, fileHeader.Size, mimeType, fileName)
	if err != nil {
		response.AppError(c, err)
		return
	}

	h.metrics.RecordUploadAccepted(mimeType, stored.FileSize)
	logger.Info("attachment stored",
		zap.String("object_id", stored.ObjectID.String()),
		zap.String("kind", string(kind)),
		zap.Int64("size", stored.FileSize))

	response.Success(c, http.StatusCreated, gin.H{
		"object_id": stored.ObjectID,
		"file_url":  stored.URL,
		"file_name": stored.FileName,
		"file_type": stored.FileType,
		"file_size": stored.FileSize,
		"kind":      kind,
	})
}

// DownloadURL hands out a fresh download URL for a stored object
// GET /v1/attachments/:id/url
func (h *Handler) DownloadURL(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	objectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid object ID")
		return
	}

	url, err := h.storageService.DownloadURL(c.Request.Context(), ownerID, objectID)
	if err != nil {
		response.AppError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"url": url})
}

// rejectionReason labels validation failures for the upload metrics
func rejectionReason(err error) string {
	switch errors.GetAppError(err).Code {
	case errors.ErrCodeUnsupportedType:
		return "unsupported_type"
	case errors.ErrCodeFileTooLarge:
		return "file_too_large"
	}
	return "invalid"
}

// sanitizeFileName strips any path components and control characters from
// a client-supplied filename before it lands in object metadata
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
