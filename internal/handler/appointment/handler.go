package appointment

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medicare-api/internal/handler"
	"github.com/jwalitptl/medicare-api/internal/middleware"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/httputil"
)

type Handler struct {
	workflow     appointment.WorkflowService
	appointments appointment.AppointmentService
	auth         *middleware.AuthMiddleware
}

func NewHandler(workflow appointment.WorkflowService, appointments appointment.AppointmentService, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{workflow: workflow, appointments: appointments, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appts := r.Group("/appointments")
	{
		requests := appts.Group("/requests")
		requests.POST("", h.auth.RequirePatient(), h.SubmitRequest)
		requests.GET("", h.auth.RequireStaff(), h.ListPendingRequests)
		requests.POST("/:id/confirm", h.auth.RequireStaff(), h.ConfirmRequest)
		requests.POST("/:id/reject", h.auth.RequireStaff(), h.RejectRequest)

		appts.GET("", h.ListAppointments)
		appts.GET("/:id", h.GetAppointment)
		appts.POST("", h.auth.RequireStaff(), h.CreateAppointment)
		appts.PUT("/:id", h.auth.RequireStaff(), h.UpdateAppointment)
	}
}

// SubmitRequest files a request on behalf of the calling patient.
func (h *Handler) SubmitRequest(c *gin.Context) {
	var in model.SubmitRequestInput
	if !handler.BindJSON(c, &in) {
		return
	}
	in.PatientID = middleware.Claims(c).UserID

	req, err := h.workflow.Submit(c.Request.Context(), &in)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, req)
}

func (h *Handler) ListPendingRequests(c *gin.Context) {
	pending, err := h.workflow.ListPending(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pending)
}

func (h *Handler) ConfirmRequest(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	appt, err := h.workflow.Approve(c.Request.Context(), id, middleware.Claims(c).UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

// RejectRequest accepts an optional {"reason": ...} body.
func (h *Handler) RejectRequest(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var in model.RejectRequestInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
			httputil.RespondWithError(c, apperrors.NewBadRequest("invalid request body", err))
			return
		}
	}

	if err := h.workflow.Reject(c.Request.Context(), id, middleware.Claims(c).UserID, in.Reason); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "status": model.RequestStatusRejected})
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	appt, err := h.appointments.CreateAppointment(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.GetAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if !middleware.CanAccessPatient(c, appt.PatientID) {
		httputil.RespondWithError(c, apperrors.NewNotFound("appointment", nil))
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

// ListAppointments scopes patients to their own appointments.
func (h *Handler) ListAppointments(c *gin.Context) {
	var filter model.AppointmentFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	if claims := middleware.Claims(c); !claims.IsStaff() {
		filter.PatientID = &claims.UserID
	}

	page, err := h.appointments.ListAppointments(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, page.Rows, filter.Page, filter.Limit, page.Total)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	appt, err := h.appointments.UpdateAppointment(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}
