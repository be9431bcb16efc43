package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/middleware"
	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/service"
)

// LatestReportPath é a rota de download da última estimativa
const LatestReportPath = "/api/reports/latest"

// EstimateHandler handles estimate and free-text command endpoints
type EstimateHandler struct {
	estimates *service.EstimateService
}

// NewEstimateHandler creates a new estimate handler
func NewEstimateHandler(estimates *service.EstimateService) *EstimateHandler {
	return &EstimateHandler{estimates: estimates}
}

// Estimate calcula uma estimativa a partir do formulário.
// Campos aceitam string ou número; valores inválidos viram 0.
func (h *EstimateHandler) Estimate(c *gin.Context) {
	var form model.EstimateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Formulário inválido", "INVALID_INPUT", err)
		return
	}
	form.City = model.FormField(middleware.SanitizeCity(string(form.City)))

	req := service.RequestFromForm(form)
	clientID := middleware.ClientID(c)

	est, err := h.estimates.Estimate(c.Request.Context(), clientID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionEstimate,
		Resource: "estimate",
		ClientIP: c.ClientIP(),
		Success:  true,
		Details: map[string]interface{}{
			"city":      est.CityName,
			"avg_total": est.AvgTotal,
		},
	})

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    service.Render(est),
	})
}

// Command interpreta um comando de voz/texto e executa a intenção
func (h *EstimateHandler) Command(c *gin.Context) {
	var req model.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Texto do comando obrigatório", "INVALID_INPUT", err)
		return
	}

	text := middleware.SanitizeUtterance(req.Text)
	if text == "" {
		badRequest(c, "Texto do comando obrigatório", "INVALID_INPUT", nil)
		return
	}

	result, err := h.estimates.Command(c.Request.Context(), middleware.ClientID(c), middleware.CurrentUser(c), text)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionCommand,
		Resource: "command",
		ClientIP: c.ClientIP(),
		Success:  result.Intent.Kind != model.IntentUnrecognized,
		Details: map[string]interface{}{
			"intent": string(result.Intent.Kind),
		},
	})

	c.JSON(http.StatusOK, commandResponse(result))
}

// commandResponse monta a resposta de um comando; downloads viram link
func commandResponse(result *service.CommandResult) gin.H {
	resp := gin.H{
		"success": true,
		"intent":  result.Intent,
		"message": result.Message,
	}
	if result.Rendering != nil {
		resp["result"] = result.Rendering
	}
	if result.Document != nil {
		resp["download_url"] = LatestReportPath
		resp["filename"] = result.Document.Filename
	}
	return resp
}
