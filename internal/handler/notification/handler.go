package notification

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/handler"
	"github.com/jwalitptl/medicare-api/internal/middleware"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	"github.com/jwalitptl/medicare-api/internal/service/patient"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/httputil"
)

type Handler struct {
	patients patient.PatientService
	logs     *notification.LogService
	auth     *middleware.AuthMiddleware
}

func NewHandler(patients patient.PatientService, logs *notification.LogService, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{patients: patients, logs: logs, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	n := r.Group("/notifications")
	{
		n.POST("/fcm-token", h.RegisterPushToken)
		n.GET("/logs", h.auth.RequireStaff(), h.ListLogs)
	}
}

func (h *Handler) RegisterPushToken(c *gin.Context) {
	var req model.RegisterPushTokenRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if !middleware.CanAccessPatient(c, req.PatientID) {
		httputil.RespondWithError(c, apperrors.Forbidden("cannot register a token for another patient"))
		return
	}

	if err := h.patients.RegisterPushToken(c.Request.Context(), req.PatientID, req.FCMToken); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"patient_id": req.PatientID})
}

// ListLogs accepts an optional patient_id query parameter.
func (h *Handler) ListLogs(c *gin.Context) {
	var patientID *uuid.UUID
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewBadRequest("invalid patient_id", err))
			return
		}
		patientID = &id
	}

	logs, err := h.logs.List(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, logs)
}
