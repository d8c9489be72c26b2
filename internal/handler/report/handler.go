package report

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medicare-api/internal/handler"
	"github.com/jwalitptl/medicare-api/internal/middleware"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/service/report"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/httputil"
)

type Handler struct {
	service report.ReportService
	auth    *middleware.AuthMiddleware
}

func NewHandler(service report.ReportService, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		reports.GET("", h.ListReports)
		reports.GET("/:id", h.GetReport)
		reports.POST("", h.auth.RequireStaff(), h.CreateReport)
	}
}

func (h *Handler) CreateReport(c *gin.Context) {
	var req model.CreateReportRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	rep, err := h.service.CreateReport(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, rep)
}

func (h *Handler) GetReport(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	rep, err := h.service.GetReport(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if !middleware.CanAccessPatient(c, rep.PatientID) {
		httputil.RespondWithError(c, apperrors.NewNotFound("report", nil))
		return
	}
	httputil.RespondWithSuccess(c, rep)
}

func (h *Handler) ListReports(c *gin.Context) {
	var filter model.ReportFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	if claims := middleware.Claims(c); !claims.IsStaff() {
		filter.PatientID = &claims.UserID
	}

	page, err := h.service.ListReports(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, page.Rows, filter.Page, filter.Limit, page.Total)
}
