package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/middleware"
	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/service"
)

// ReportHandler manipula o download do documento da última estimativa
// e as entregas via webhook
type ReportHandler struct {
	estimates  *service.EstimateService
	deliveries *service.DeliveryQueue
}

// NewReportHandler cria um novo handler de relatórios
func NewReportHandler(estimates *service.EstimateService, deliveries *service.DeliveryQueue) *ReportHandler {
	return &ReportHandler{
		estimates:  estimates,
		deliveries: deliveries,
	}
}

// webhookRequest pede a entrega assíncrona do documento
type webhookRequest struct {
	WebhookURL string `json:"webhook_url" binding:"required"`
}

// Latest baixa o documento XLSX da última estimativa do cliente
func (h *ReportHandler) Latest(c *gin.Context) {
	doc, err := h.estimates.Download(middleware.ClientID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionReportDownload,
		Resource: "estimate_report",
		ClientIP: c.ClientIP(),
		Success:  true,
	})

	sendDocument(c, doc)
}

// Deliver enfileira a entrega do documento da última estimativa para o webhook.
// Exige sessão; o destino é checado de novo na conexão (WebhookService).
func (h *ReportHandler) Deliver(c *gin.Context) {
	if middleware.CurrentUser(c) == nil {
		respondError(c, model.ErrLoginRequired)
		return
	}

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "webhook_url obrigatório", "INVALID_INPUT", err)
		return
	}

	u, err := url.Parse(req.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" || u.User != nil {
		badRequest(c, "webhook_url inválida", "INVALID_WEBHOOK_URL", err)
		return
	}

	clientID := middleware.ClientID(c)
	est, ok := h.estimates.LastEstimate(clientID)
	if !ok {
		respondError(c, model.ErrNoEstimate)
		return
	}

	job, err := h.deliveries.Enqueue(c.Request.Context(), clientID, req.WebhookURL, *est)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, model.Response{
		Success: true,
		Message: "Documento será enviado para o webhook",
		Data:    job,
	})
}

// Deliveries lista as entregas do cliente
func (h *ReportHandler) Deliveries(c *gin.Context) {
	jobs := h.deliveries.ListByClient(middleware.ClientID(c))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"deliveries": jobs,
			"count":      len(jobs),
		},
	})
}

// Delivery retorna o status de uma entrega
func (h *ReportHandler) Delivery(c *gin.Context) {
	job, err := h.deliveries.Get(middleware.ClientID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    job,
	})
}

// sendDocument escreve o XLSX como anexo
func sendDocument(c *gin.Context, doc *service.Document) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", middleware.SanitizeFilename(doc.Filename)))
	c.Header("Content-Length", fmt.Sprintf("%d", doc.Content.Len()))
	c.Data(http.StatusOK, service.XLSXContentType, doc.Content.Bytes())
}
