package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/middleware"
	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/service"
)

// QuoteNotifier recebe avisos de mudança na lista de quotes (hub websocket)
type QuoteNotifier interface {
	NotifyQuotesChanged(count int)
}

// QuoteHandler handles saved quote endpoints
type QuoteHandler struct {
	estimates *service.EstimateService
	notifier  QuoteNotifier
}

// NewQuoteHandler creates a new quote handler; notifier pode ser nil
func NewQuoteHandler(estimates *service.EstimateService, notifier QuoteNotifier) *QuoteHandler {
	return &QuoteHandler{estimates: estimates, notifier: notifier}
}

// List retorna as quotes salvas, mais recente primeiro
func (h *QuoteHandler) List(c *gin.Context) {
	quotes, err := h.estimates.ListQuotes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"quotes": quotes,
			"items":  service.QuoteItems(quotes),
			"count":  len(quotes),
		},
	})
}

// Save grava a última estimativa do cliente; exige sessão
func (h *QuoteHandler) Save(c *gin.Context) {
	err := h.estimates.Save(c.Request.Context(), middleware.ClientID(c), middleware.CurrentUser(c))
	if err != nil {
		logger.Audit(c.Request.Context(), logger.AuditEvent{
			Action:   logger.AuditActionQuoteRejected,
			Resource: "quote",
			ClientIP: c.ClientIP(),
			Success:  false,
			Error:    err.Error(),
		})
		respondError(c, err)
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionQuoteSave,
		Resource: "quote",
		ClientIP: c.ClientIP(),
		Success:  true,
	})
	h.notify(c)

	c.JSON(http.StatusCreated, model.Response{
		Success: true,
		Message: service.MsgQuoteSaved,
	})
}

// Load recarrega a quote do índice e recalcula a estimativa
func (h *QuoteHandler) Load(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	est, err := h.estimates.Reload(c.Request.Context(), middleware.ClientID(c), index)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:     logger.AuditActionQuoteLoad,
		Resource:   "quote",
		ResourceID: strconv.Itoa(index),
		ClientIP:   c.ClientIP(),
		Success:    true,
	})

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    service.Render(est),
	})
}

// Delete remove a quote do índice
func (h *QuoteHandler) Delete(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	if err := h.estimates.DeleteQuote(c.Request.Context(), index); err != nil {
		respondError(c, err)
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:     logger.AuditActionQuoteDelete,
		Resource:   "quote",
		ResourceID: strconv.Itoa(index),
		ClientIP:   c.ClientIP(),
		Success:    true,
	})
	h.notify(c)

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: service.MsgQuoteDeleted,
	})
}

// Export baixa todas as quotes em XLSX
func (h *QuoteHandler) Export(c *gin.Context) {
	doc, err := h.estimates.ExportQuotes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionReportDownload,
		Resource: "quotes_export",
		ClientIP: c.ClientIP(),
		Success:  true,
	})

	sendDocument(c, doc)
}

func (h *QuoteHandler) notify(c *gin.Context) {
	if h.notifier == nil {
		return
	}
	quotes, err := h.estimates.ListQuotes(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Warn().Err(err).Msg("Falha ao contar quotes para notificação")
		return
	}
	h.notifier.NotifyQuotesChanged(len(quotes))
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "Índice inválido", "INVALID_INDEX", err)
		return 0, false
	}
	return index, true
}
