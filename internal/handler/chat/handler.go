package chat

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/handler"
	"github.com/jwalitptl/medicare-api/internal/middleware"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/service/chat"
	"github.com/jwalitptl/medicare-api/internal/service/staff"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/httputil"
)

type Handler struct {
	chat      chat.ChatService
	directory staff.DirectoryService
	auth      *middleware.AuthMiddleware
}

func NewHandler(chat chat.ChatService, directory staff.DirectoryService, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{chat: chat, directory: directory, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	c := r.Group("/chat")
	{
		c.GET("/patients", h.auth.RequireStaff(), h.ListConversations)
		c.GET("/unread/total", h.auth.RequireStaff(), h.TotalUnread)
		c.GET("/doctors", h.ListDoctors)

		thread := c.Group("/:patientId", h.threadAccess)
		thread.GET("/messages", h.GetMessages)
		thread.POST("/messages", h.SendMessage)
		thread.POST("/read", h.MarkRead)
		thread.GET("/unread", h.auth.RequirePatient(), h.UnreadForPatient)
	}
}

// threadAccess resolves :patientId and keeps patients inside their own thread.
func (h *Handler) threadAccess(c *gin.Context) {
	id, ok := handler.ParseID(c, "patientId")
	if !ok {
		return
	}
	if !middleware.CanAccessPatient(c, id) {
		httputil.RespondWithError(c, apperrors.Forbidden("cannot access another patient's conversation"))
		return
	}
	c.Set("patient_id", id)
	c.Next()
}

func threadID(c *gin.Context) uuid.UUID {
	return c.MustGet("patient_id").(uuid.UUID)
}

// callerRole maps the token role onto a chat sender role.
func callerRole(c *gin.Context) model.SenderRole {
	if middleware.Claims(c).IsStaff() {
		return model.SenderStaff
	}
	return model.SenderPatient
}

func counterpart(role model.SenderRole) model.SenderRole {
	if role == model.SenderStaff {
		return model.SenderPatient
	}
	return model.SenderStaff
}

func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.chat.Conversations(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, convs)
}

func (h *Handler) TotalUnread(c *gin.Context) {
	n, err := h.chat.TotalUnread(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"total": n})
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.directory.ListDoctors(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) GetMessages(c *gin.Context) {
	msgs, err := h.chat.Transcript(c.Request.Context(), threadID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, msgs)
}

// SendMessage takes the sender identity from the token, never the body.
func (h *Handler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	in := chat.AppendInput{
		PatientID:  threadID(c),
		SenderRole: callerRole(c),
		Message:    req.Message,
		Priority:   req.Priority,
	}
	if in.SenderRole == model.SenderStaff {
		staffID := middleware.Claims(c).UserID
		in.SenderID = &staffID
	}

	msg, err := h.chat.Append(c.Request.Context(), in)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, msg)
}

// MarkRead marks the other side's messages as read by the caller.
func (h *Handler) MarkRead(c *gin.Context) {
	n, err := h.chat.MarkRead(c.Request.Context(), threadID(c), counterpart(callerRole(c)))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"marked": n})
}

func (h *Handler) UnreadForPatient(c *gin.Context) {
	n, err := h.chat.UnreadForPatient(c.Request.Context(), threadID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"unread": n})
}
