package handler

import (
	"net/http"

	"github.com/kupferco/lv-notas/internal/apierror"
	"github.com/kupferco/lv-notas/internal/dto"
	"github.com/kupferco/lv-notas/internal/middleware"
	"github.com/kupferco/lv-notas/internal/service"

	"github.com/gin-gonic/gin"
)

type MatchesHandler struct{ svc service.MatchingService }

func NewMatchesHandler(svc service.MatchingService) *MatchesHandler {
	return &MatchesHandler{svc: svc}
}

// List godoc
// @Summary      Sugestões de conciliação
// @Description  Pareia transações bancárias não vinculadas com períodos em aberto. Somente leitura.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        start query string true  "Data inicial YYYY-MM-DD"
// @Param        end   query string true  "Data final YYYY-MM-DD"
// @Param        limit query int    false "Máximo de sugestões (default 50)"
// @Success      200   {object} dto.MatchListResponse
// @Router       /v1/matches [get]
func (h *MatchesHandler) List(c *gin.Context) {
	var filter dto.MatchFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if err := validate.Struct(&filter); err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("Parâmetros de consulta inválidos"))
		return
	}
	resp, err := h.svc.SuggestMatches(c.Request.Context(), middleware.TherapistID(c), filter)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
