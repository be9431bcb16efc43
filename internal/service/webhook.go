package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/model"
)

// WebhookPayload é o corpo JSON enviado quando a geração falha
type WebhookPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// WebhookService envia documentos de estimativa para webhooks
type WebhookService struct {
	httpClient *http.Client
}

// NewWebhookService cria um novo serviço de webhook.
// Sem allowPrivate, conexões para loopback, redes privadas e link-local são
// recusadas no dial, inclusive após redirect ou DNS que mude de resposta.
func NewWebhookService(allowPrivate bool) *WebhookService {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = rejectInternal
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &WebhookService{
		httpClient: &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

// rejectInternal roda antes de cada connect com o IP já resolvido
func rejectInternal(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !publicIP(ip) {
		return fmt.Errorf("%w: %s", model.ErrWebhookTarget, host)
	}
	return nil
}

func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// SendDocument envia o documento como multipart junto com os totais da estimativa
func (w *WebhookService) SendDocument(ctx context.Context, webhookURL string, e model.Estimate, doc *Document) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := []struct{ name, value string }{
		{"success", "true"},
		{"city", CityLabel(e.CityName)},
		{"min_total", strconv.FormatInt(e.MinTotal, 10)},
		{"max_total", strconv.FormatInt(e.MaxTotal, 10)},
		{"avg_total", strconv.FormatInt(e.AvgTotal, 10)},
		{"file_mime", XLSXContentType},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(doc.Filename))
	if err != nil {
		return fmt.Errorf("criar form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(doc.Content.Bytes())); err != nil {
		return fmt.Errorf("copiar arquivo: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("fechar writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, &body)
	if err != nil {
		return fmt.Errorf("criar request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enviar webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook retornou status %d: %s", resp.StatusCode, string(respBody))
	}

	logger.Get(ctx).Info().
		Str("url", webhookURL).
		Int("status", resp.StatusCode).
		Int("size_bytes", doc.Content.Len()).
		Msg("Webhook enviado com sucesso")
	return nil
}

// SendError envia o resultado de erro para o webhook
func (w *WebhookService) SendError(ctx context.Context, webhookURL string, err error) error {
	return w.send(ctx, webhookURL, WebhookPayload{
		Success: false,
		Error:   err.Error(),
	})
}

// send envia o payload para o webhook
func (w *WebhookService) send(ctx context.Context, webhookURL string, payload WebhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("criar request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enviar webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook retornou status %d", resp.StatusCode)
	}

	logger.Get(ctx).Info().
		Str("url", webhookURL).
		Int("status", resp.StatusCode).
		Msg("Webhook enviado com sucesso")

	return nil
}
