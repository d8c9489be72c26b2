package billing

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medicare-api/internal/handler"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/service/billing"
	"github.com/jwalitptl/medicare-api/pkg/httputil"
)

type Handler struct {
	service billing.BillingService
}

func NewHandler(service billing.BillingService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects r to be restricted to staff.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bills := r.Group("/bills")
	{
		bills.POST("", h.CreateBill)
		bills.GET("", h.ListBills)
		bills.GET("/:id", h.GetBill)
		bills.POST("/:id/payment", h.RecordPayment)
	}
}

func (h *Handler) CreateBill(c *gin.Context) {
	var req model.CreateBillRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	bill, err := h.service.CreateBill(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, bill)
}

func (h *Handler) GetBill(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	bill, err := h.service.GetBill(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bill)
}

func (h *Handler) ListBills(c *gin.Context) {
	var filter model.BillFilter
	if !handler.BindQuery(c, &filter) {
		return
	}

	page, err := h.service.ListBills(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, page.Rows, filter.Page, filter.Limit, page.Total)
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.RecordPaymentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	bill, err := h.service.RecordPayment(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bill)
}
