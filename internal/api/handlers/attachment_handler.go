package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/response"
	"github.com/welldanyogia/webrana-chat-backend/internal/services"
)

// AttachmentHandler serves stored attachment bytes
type AttachmentHandler struct {
	messages services.MessageService
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(messages services.MessageService) *AttachmentHandler {
	return &AttachmentHandler{messages: messages}
}

// Download handles GET /api/attachments/:id
func (h *AttachmentHandler) Download(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid attachment ID")
	}

	attachment, file, err := h.messages.OpenAttachment(c.Request().Context(), id)
	if err != nil {
		return response.Error(c, err)
	}
	defer file.Close()

	header := c.Response().Header()
	header.Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, quoteEscaper.Replace(attachment.DisplayName)))
	if attachment.SizeBytes > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(attachment.SizeBytes, 10))
	}

	return c.Stream(http.StatusOK, attachment.MimeType, file)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
