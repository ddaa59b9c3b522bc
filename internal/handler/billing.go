package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/middleware"
	"github.com/kupferco/lv-notas/internal/service"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct{ svc service.BillingPeriodService }

func NewBillingHandler(svc service.BillingPeriodService) *BillingHandler {
	return &BillingHandler{svc: svc}
}

// ProcessCharges godoc
// @Summary      Processar cobrança mensal
// @Description  Agrega as sessões cobráveis do mês em um período de cobrança com snapshots imutáveis.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ProcessChargesRequest true "Paciente e competência"
// @Success      201  {object} dto.BillingPeriodResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/billing/process [post]
func (h *BillingHandler) ProcessCharges(c *gin.Context) {
	var req dto.ProcessChargesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ProcessCharges(c.Request.Context(), middleware.TherapistID(c), req)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// VoidPeriod godoc
// @Summary      Anular período de cobrança
// @Tags         billing
// @Security     BearerAuth
// @Param        id   path string                true "UUID do período"
// @Param        body body dto.VoidPeriodRequest true "Motivo"
// @Success      204
// @Failure      409 {object} apierror.APIError
// @Router       /v1/billing/periods/{id} [delete]
func (h *BillingHandler) VoidPeriod(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.VoidPeriodRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.VoidBillingPeriod(c.Request.Context(), middleware.TherapistID(c), id, req.Reason); err != nil {
		apierror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BillingHandler) GetPeriod(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetBillingPeriod(c.Request.Context(), middleware.TherapistID(c), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Summary returns the month's billing state for every active patient.
// Defaults to the current month when year/month are omitted.
func (h *BillingHandler) Summary(c *gin.Context) {
	now := time.Now()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("year inválido"))
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, apierror.New("month inválido"))
		return
	}
	resp, svcErr := h.svc.GetMonthlyBillingSummary(c.Request.Context(), middleware.TherapistID(c), year, month)
	if svcErr != nil {
		apierror.Respond(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}
