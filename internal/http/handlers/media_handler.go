package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrolink/agrolink-backend/internal/dto"
	"github.com/agrolink/agrolink-backend/internal/http/handlers/common"
	"github.com/agrolink/agrolink-backend/internal/service"
	"github.com/agrolink/agrolink-backend/internal/storage"
)

type MediaHandler struct {
	media   *service.MediaService
	storage *storage.DiskStorage
}

func NewMediaHandler(media *service.MediaService, storage *storage.DiskStorage) *MediaHandler {
	return &MediaHandler{media: media, storage: storage}
}

// Upload POST /media
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "приложите файл в поле file")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось открыть файл")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	media, err := h.media.Upload(c.Request.Context(), userID, fileHeader.Filename, data)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, media)
}

// Download GET /media/:id
func (h *MediaHandler) Download(c *gin.Context) {
	mediaID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	media, err := h.media.GetFile(c.Request.Context(), mediaID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.Header("Content-Type", media.MimeType)
	c.File(h.storage.AbsolutePath(media.FilePath))
}

// Attach POST /contracts/:id/attachments
func (h *MediaHandler) Attach(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AttachMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите media_id")
		return
	}
	mediaID, err := uuid.Parse(req.MediaID)
	if err != nil {
		common.RespondBadRequest(c, "неверный media_id")
		return
	}

	attachment, err := h.media.Attach(c.Request.Context(), contractID, userID, mediaID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// ListAttachments GET /contracts/:id/attachments
func (h *MediaHandler) ListAttachments(c *gin.Context) {
	contractID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	attachments, err := h.media.ListAttachments(c.Request.Context(), contractID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachments": attachments, "count": len(attachments)})
}
