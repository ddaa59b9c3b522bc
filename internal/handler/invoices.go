package handler

import (
	"net/http"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/middleware"
	"github.com/kupferco/lv-notas/internal/service"

	"github.com/gin-gonic/gin"
)

type InvoicesHandler struct{ svc service.InvoiceService }

func NewInvoicesHandler(svc service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{svc: svc}
}

// Request godoc
// @Summary      Emitir NFS-e
// @Description  Solicita a emissão de nota fiscal para um período pago. Exige certificado digital válido.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RequestInvoiceRequest true "Período de cobrança"
// @Success      201  {object} dto.InvoiceResponse
// @Failure      409  {object} apierror.APIError
// @Failure      412  {object} apierror.APIError
// @Router       /v1/invoices [post]
func (h *InvoicesHandler) Request(c *gin.Context) {
	var req dto.RequestInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RequestInvoice(c.Request.Context(), middleware.TherapistID(c), req)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InvoicesHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.CancelInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.CancelInvoice(c.Request.Context(), middleware.TherapistID(c), id, req.Reason); err != nil {
		apierror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InvoicesHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetInvoice(c.Request.Context(), middleware.TherapistID(c), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoicesHandler) ListByPeriod(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListByPeriod(c.Request.Context(), middleware.TherapistID(c), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PDF streams the stored NFS-e document, downloading it from the provider on
// first access.
func (h *InvoicesHandler) PDF(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	path, err := h.svc.GetInvoicePDFPath(c.Request.Context(), middleware.TherapistID(c), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
