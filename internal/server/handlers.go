package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatsphere/internal/controller"
	"chatsphere/internal/domain"
	"chatsphere/internal/transport/httpdto"
	chat_errors "chatsphere/pkg/errors"
	"chatsphere/pkg/logger"
)

// Handler exposes the sync core to the presentation layer. Handlers stay
// thin: bind, delegate to the controller, map the sentinel error.
type Handler struct {
	ctrl *controller.Controller
	log  *logger.Logger
}

func NewHandler(ctrl *controller.Controller, log *logger.Logger) *Handler {
	return &Handler{ctrl: ctrl, log: log}
}

func (h *Handler) ListConversations(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"conversations": h.ctrl.Conversations()}))
}

func (h *Handler) Focus(c *gin.Context) {
	h.ctrl.FocusConversation(c.Param("id"))
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"focused": c.Param("id")}))
}

func (h *Handler) ListMessages(c *gin.Context) {
	msgs := h.ctrl.Messages(c.Param("id"))
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": msgs}))
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req httpdto.SendDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "BAD_REQUEST"))
		return
	}

	msg, err := h.ctrl.SendMessage(c.Param("id"), controller.DraftInput{
		Text:     req.Text,
		ReplyTo:  req.ReplyTo,
		FileName: req.FileName,
		FileData: req.FileData,
		FileURL:  req.FileURL,
		FileSize: req.FileSize,
		Caption:  req.Caption,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	// Accepted, not created: the entry is optimistic until the server acks.
	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse(msg))
}

// Retry and discard address the failed entry by its client id, which is what
// the messageId segment carries before a server ack exists.
func (h *Handler) RetryMessage(c *gin.Context) {
	if err := h.ctrl.RetryMessage(c.Param("id"), c.Param("messageId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse(gin.H{"retried": c.Param("messageId")}))
}

func (h *Handler) DiscardMessage(c *gin.Context) {
	if err := h.ctrl.DiscardMessage(c.Param("id"), c.Param("messageId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"discarded": c.Param("messageId")}))
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.ctrl.DeleteMessage(c.Param("id"), c.Param("messageId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": c.Param("messageId")}))
}

func (h *Handler) GetReplyPreview(c *gin.Context) {
	parent, preview := h.ctrl.ReplyPreview(c.Param("id"), c.Param("messageId"))
	resp := httpdto.ReplyPreviewResponse{Resolved: parent != nil, Preview: preview}
	if parent != nil {
		resp.ParentID = parent.ID
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *Handler) SetTyping(c *gin.Context) {
	var req httpdto.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "BAD_REQUEST"))
		return
	}
	h.ctrl.SetTyping(c.Param("id"), req.HasText)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{}))
}

func (h *Handler) GetTyping(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(h.ctrl.TypingState(c.Param("id"))))
}

func (h *Handler) GetUnseen(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnseenResponse{
		Count: h.ctrl.UnseenCount(c.Param("id")),
	}))
}

func (h *Handler) NoteScroll(c *gin.Context) {
	h.ctrl.NoteScroll(c.Param("id"))
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{}))
}

func (h *Handler) GetPresence(c *gin.Context) {
	userID := c.Param("id")
	resp := httpdto.PresenceResponse{Online: h.ctrl.IsOnline(userID)}
	if !resp.Online {
		if ts, ok := h.ctrl.LastSeen(userID); ok {
			resp.LastSeen = &ts
		}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req httpdto.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "BAD_REQUEST"))
		return
	}
	user, err := h.ctrl.UpdateProfile(c.Request.Context(), domainProfileUpdate(req))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(user))
}

func domainProfileUpdate(req httpdto.ProfileUpdateRequest) domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FullName:  req.FullName,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat_errors.ErrValidation):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "VALIDATION_FAILED"))
	case errors.Is(err, chat_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, chat_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse(err.Error(), "UNAUTHORIZED"))
	case errors.Is(err, chat_errors.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, httpdto.NewErrorResponse(err.Error(), "TIMEOUT"))
	case errors.Is(err, chat_errors.ErrNetwork), errors.Is(err, chat_errors.ErrDeleteFailed):
		c.JSON(http.StatusBadGateway, httpdto.NewErrorResponse(err.Error(), "UPSTREAM_FAILED"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
	}
}
