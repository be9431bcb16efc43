package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	// Authentication actions
	AuditActionSignup      AuditAction = "SIGNUP"
	AuditActionLogin       AuditAction = "LOGIN"
	AuditActionLoginFailed AuditAction = "LOGIN_FAILED"
	AuditActionLogout      AuditAction = "LOGOUT"

	// Estimate operations
	AuditActionEstimate AuditAction = "ESTIMATE"
	AuditActionCommand  AuditAction = "COMMAND"

	// Quote operations
	AuditActionQuoteSave     AuditAction = "QUOTE_SAVE"
	AuditActionQuoteRejected AuditAction = "QUOTE_SAVE_REJECTED"
	AuditActionQuoteLoad     AuditAction = "QUOTE_LOAD"
	AuditActionQuoteDelete   AuditAction = "QUOTE_DELETE"

	// Report operations
	AuditActionReportDownload  AuditAction = "REPORT_DOWNLOAD"
	AuditActionWebhookDelivery AuditAction = "WEBHOOK_DELIVERY"

	// WebSocket operations
	AuditActionWSConnect    AuditAction = "WS_CONNECT"
	AuditActionWSDisconnect AuditAction = "WS_DISCONNECT"

	// API access
	AuditActionAPIRequest  AuditAction = "API_REQUEST"
	AuditActionAPIError    AuditAction = "API_ERROR"
	AuditActionAdminDenied AuditAction = "ADMIN_DENIED"
)

// AuditEvent represents an audit log entry
type AuditEvent struct {
	Action     AuditAction
	UserID     string
	ClientID   string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	ClientIP   string
	RequestID  string
	Method     string
	Path       string
	StatusCode int
	Duration   int64
	Success    bool
	Error      string
}

// auditLogger is a specialized logger for audit events
var auditLogger zerolog.Logger

// InitAudit initializes the audit logger
func InitAudit() {
	auditLogger = globalLogger.With().Str("log_type", "audit").Logger()
}

// Audit logs an audit event
func Audit(ctx context.Context, event AuditEvent) {
	if event.RequestID == "" {
		event.RequestID = GetRequestID(ctx)
	}
	if event.UserID == "" {
		event.UserID = GetUserID(ctx)
	}
	if event.ClientID == "" {
		event.ClientID = GetClientID(ctx)
	}

	logEvent := auditLogger.Info()
	if !event.Success {
		logEvent = auditLogger.Warn()
	}

	logEvent.
		Str("action", string(event.Action)).
		Str("user_id", event.UserID).
		Str("client_id", event.ClientID).
		Str("resource", event.Resource).
		Str("resource_id", event.ResourceID).
		Str("client_ip", event.ClientIP).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Time("timestamp", time.Now().UTC())

	if event.Method != "" {
		logEvent.Str("method", event.Method).Str("path", event.Path).Int("status_code", event.StatusCode).Int64("duration_ms", event.Duration)
	}

	if event.Error != "" {
		logEvent.Str("error", event.Error)
	}

	if len(event.Details) > 0 {
		logEvent.Interface("details", event.Details)
	}

	logEvent.Msg("Audit event")
}

// AuditRequest logs an API request audit event
func AuditRequest(ctx context.Context, resource, method, path string, statusCode int, duration int64, userID, clientIP string) {
	success := statusCode < 400
	action := AuditActionAPIRequest
	if !success {
		action = AuditActionAPIError
	}

	Audit(ctx, AuditEvent{
		Action:     action,
		UserID:     userID,
		Resource:   resource,
		ResourceID: path,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Duration:   duration,
		ClientIP:   clientIP,
		Success:    success,
	})
}
