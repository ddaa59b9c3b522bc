package handler

import (
	"net/http"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/middleware"
	"github.com/kupferco/lv-notas/internal/service"

	"github.com/gin-gonic/gin"
)

type PatientsHandler struct {
	svc         service.PatientService
	outstanding service.OutstandingService
}

func NewPatientsHandler(svc service.PatientService, outstanding service.OutstandingService) *PatientsHandler {
	return &PatientsHandler{svc: svc, outstanding: outstanding}
}

func (h *PatientsHandler) Create(c *gin.Context) {
	var req dto.CreatePatientRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.TherapistID(c), req)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PatientsHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePatientRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), middleware.TherapistID(c), id, req)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PatientsHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.TherapistID(c), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PatientsHandler) List(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	resp, err := h.svc.List(c.Request.Context(), middleware.TherapistID(c), includeInactive)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *PatientsHandler) Deactivate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), middleware.TherapistID(c), id); err != nil {
		apierror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Outstanding godoc
// @Summary      Saldo em aberto do paciente
// @Description  Retorna o período não pago mais antigo do paciente, se houver.
// @Tags         patients
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.OutstandingResponse
// @Router       /v1/patients/{id}/outstanding [get]
func (h *PatientsHandler) Outstanding(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.outstanding.GetOutstanding(c.Request.Context(), middleware.TherapistID(c), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
