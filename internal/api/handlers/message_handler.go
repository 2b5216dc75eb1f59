package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-chat-backend/internal/api/response"
	"github.com/welldanyogia/webrana-chat-backend/internal/attachment"
	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"github.com/welldanyogia/webrana-chat-backend/internal/models"
	"github.com/welldanyogia/webrana-chat-backend/internal/services"
	"github.com/welldanyogia/webrana-chat-backend/internal/websocket"
)

// uploadField is the multipart field carrying an attachment
const uploadField = "attachment"

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messages services.MessageService
	security *logger.SecurityLogger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages services.MessageService, security *logger.SecurityLogger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		security: security,
	}
}

// CreateMessageRequest is the body of POST /api/messages
type CreateMessageRequest struct {
	Content string `json:"content" form:"content"`
}

// UpdateMessageRequest is the body of PUT /api/messages/:id
type UpdateMessageRequest struct {
	NewContent string `json:"new_content" form:"new_content"`
}

// List handles GET /api/messages
func (h *MessageHandler) List(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return response.BadRequest(c, "invalid limit")
		}
		limit = parsed
	}

	messages, err := h.messages.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, lo.Map(messages, func(m models.Message, _ int) websocket.MessagePayload {
		return websocket.NewMessagePayload(&m)
	}))
}

// Create handles POST /api/messages
func (h *MessageHandler) Create(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return response.Unauthorized(c, "authentication required")
	}

	var req CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	upload, err := readUpload(c)
	if err != nil {
		return response.BadRequest(c, "invalid attachment")
	}

	msg, err := h.messages.Send(c.Request().Context(), identity.UserID, req.Content, upload)
	if err != nil {
		h.logRejectedUpload(c, upload, err)
		return response.Error(c, err)
	}

	return response.Created(c, websocket.NewMessagePayload(msg))
}

// Update handles PUT /api/messages/:id
func (h *MessageHandler) Update(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return response.Unauthorized(c, "authentication required")
	}

	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	var req UpdateMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	upload, err := readUpload(c)
	if err != nil {
		return response.BadRequest(c, "invalid attachment")
	}

	if _, err := h.messages.Edit(c.Request().Context(), id, identity.UserID, req.NewContent, upload); err != nil {
		h.logRejectedUpload(c, upload, err)
		h.logOwnershipViolation(c, identity.UserID, id, err)
		return response.Error(c, err)
	}

	return response.NoContent(c)
}

// Delete handles DELETE /api/messages/:id
func (h *MessageHandler) Delete(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return response.Unauthorized(c, "authentication required")
	}

	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "invalid message ID")
	}

	if err := h.messages.Delete(c.Request().Context(), id, identity.UserID); err != nil {
		h.logOwnershipViolation(c, identity.UserID, id, err)
		return response.Error(c, err)
	}

	return response.NoContent(c)
}

func (h *MessageHandler) logRejectedUpload(c echo.Context, upload *attachment.Upload, err error) {
	if h.security == nil || upload == nil {
		return
	}
	switch apperrors.GetErrorCode(err) {
	case apperrors.CodeUnsupportedType, apperrors.CodeExtensionMismatch, apperrors.CodeFileTooLarge:
		h.security.BlockedFileUpload(c.RealIP(), upload.Filename, err.Error())
	}
}

func (h *MessageHandler) logOwnershipViolation(c echo.Context, userID, messageID uint, err error) {
	if h.security != nil && errors.Is(err, apperrors.ErrForbidden) {
		h.security.OwnershipViolation(c.RealIP(), userID, "message", messageID)
	}
}

// readUpload returns the attached file of a multipart request, or nil when
// the request carries none. At most one byte past the largest size ceiling
// is read so oversized files are still rejected by validation.
func readUpload(c echo.Context) (*attachment.Upload, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}

	fh, err := c.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, attachment.MaxUploadSize+1))
	if err != nil {
		return nil, err
	}

	return &attachment.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
