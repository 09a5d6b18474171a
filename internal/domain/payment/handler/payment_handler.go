package handler

import (
	"tiered_social/internal/domain/payment/service"
	"tiered_social/internal/pkg/middleware"
	"tiered_social/pkg/response"
	"tiered_social/pkg/utils"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service service.PaymentService
}

func NewPaymentHandler(service service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, plans)
}

// Process POST /payments/process
func (h *PaymentHandler) Process(c *gin.Context) {
	var input service.ProcessUpgradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err)
		return
	}

	result, err := h.service.ProcessUpgrade(c.Request.Context(), middleware.CurrentUser(c), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, result)
}

func (h *PaymentHandler) MySubscription(c *gin.Context) {
	sub, err := h.service.GetSubscription(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, sub)
}

func (h *PaymentHandler) CancelSubscription(c *gin.Context) {
	if err := h.service.CancelSubscription(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "subscription cancelled"})
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.BadRequest(c, err)
		return
	}
	offset, limit := p.GetPageOffset()

	items, total, err := h.service.ListPayments(c.Request.Context(), middleware.CurrentUser(c), offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: items, Total: total, Page: p.Page, Limit: p.Limit})
}
