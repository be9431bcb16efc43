package metrics

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Counter é um contador atômico; o valor zero está pronto para uso
type Counter struct {
	n int64
}

// Inc soma 1
func (c *Counter) Inc() { atomic.AddInt64(&c.n, 1) }

// Add soma d (pode ser negativo)
func (c *Counter) Add(d int64) { atomic.AddInt64(&c.n, d) }

// Load retorna o valor atual
func (c *Counter) Load() int64 { return atomic.LoadInt64(&c.n) }

// EndpointMetrics acumula requisições de uma rota ("GET /api/quotes/:index")
type EndpointMetrics struct {
	Requests     int64
	Errors       int64
	TotalLatency int64
}

type endpointCounters struct {
	requests, errors, latency Counter
}

// Metrics holds all application metrics
type Metrics struct {
	start time.Time

	requests struct {
		total, successful, failed, latencyMs Counter
	}
	estimates Counter
	commands  struct {
		estimate, save, download, unrecognized, rateLimited Counter
	}
	quotes struct {
		saved, rejected, deleted, loaded Counter
	}
	ws struct {
		connections, messagesIn, messagesOut Counter
	}
	auth struct {
		signups, attempts, successes, failures Counter
	}
	reports struct {
		generated, errors Counter
	}
	deliveries struct {
		queued, completed, failed, retries Counter
	}

	mu        sync.RWMutex
	endpoints map[string]*endpointCounters
}

var (
	globalMetrics *Metrics
	once          sync.Once
)

// New cria um conjunto de métricas independente
func New() *Metrics {
	return &Metrics{
		start:     time.Now(),
		endpoints: make(map[string]*endpointCounters),
	}
}

// Get retorna as métricas globais do processo
func Get() *Metrics {
	once.Do(func() {
		globalMetrics = New()
	})
	return globalMetrics
}

// IncrementRequests registra uma requisição HTTP concluída
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	m.requests.total.Inc()
	m.requests.latencyMs.Add(latencyMs)
	if success {
		m.requests.successful.Inc()
	} else {
		m.requests.failed.Inc()
	}
}

// IncrementEstimate incrementa o contador de estimativas calculadas
func (m *Metrics) IncrementEstimate() { m.estimates.Inc() }

// IncrementCommand incrementa o contador da intenção reconhecida
func (m *Metrics) IncrementCommand(kind string) {
	switch kind {
	case "estimate":
		m.commands.estimate.Inc()
	case "save":
		m.commands.save.Inc()
	case "download":
		m.commands.download.Inc()
	default:
		m.commands.unrecognized.Inc()
	}
}

// IncrementRateLimited conta comandos rejeitados pelo rate limit
func (m *Metrics) IncrementRateLimited() { m.commands.rateLimited.Inc() }

// IncrementQuoteSaved conta tentativas de salvar quote
func (m *Metrics) IncrementQuoteSaved(success bool) {
	if success {
		m.quotes.saved.Inc()
	} else {
		m.quotes.rejected.Inc()
	}
}

// IncrementQuoteDeleted conta quotes removidas
func (m *Metrics) IncrementQuoteDeleted() { m.quotes.deleted.Inc() }

// IncrementQuoteLoaded conta quotes recarregadas
func (m *Metrics) IncrementQuoteLoaded() { m.quotes.loaded.Inc() }

// IncrementWSConnection / DecrementWSConnection acompanham conexões abertas
func (m *Metrics) IncrementWSConnection() { m.ws.connections.Inc() }

func (m *Metrics) DecrementWSConnection() { m.ws.connections.Add(-1) }

func (m *Metrics) IncrementWSMessageIn() { m.ws.messagesIn.Inc() }

func (m *Metrics) IncrementWSMessageOut() { m.ws.messagesOut.Inc() }

// IncrementSignup conta cadastros
func (m *Metrics) IncrementSignup() { m.auth.signups.Inc() }

// IncrementLogin conta tentativas de login e o resultado
func (m *Metrics) IncrementLogin(success bool) {
	m.auth.attempts.Inc()
	if success {
		m.auth.successes.Inc()
	} else {
		m.auth.failures.Inc()
	}
}

// IncrementReportGenerated conta planilhas geradas (ou falhas ao gerar)
func (m *Metrics) IncrementReportGenerated(success bool) {
	if success {
		m.reports.generated.Inc()
	} else {
		m.reports.errors.Inc()
	}
}

// IncrementDeliveryQueued conta entregas de webhook enfileiradas
func (m *Metrics) IncrementDeliveryQueued() { m.deliveries.queued.Inc() }

// IncrementDeliveryFinished conta entregas concluídas ou falhas
func (m *Metrics) IncrementDeliveryFinished(success bool) {
	if success {
		m.deliveries.completed.Inc()
	} else {
		m.deliveries.failed.Inc()
	}
}

// IncrementDeliveryRetry conta novas tentativas de entrega
func (m *Metrics) IncrementDeliveryRetry() { m.deliveries.retries.Inc() }

// TrackEndpoint registra uma requisição na rota; status >= 400 conta como erro
func (m *Metrics) TrackEndpoint(path, method string, statusCode int, latencyMs int64) {
	key := method + " " + path

	m.mu.RLock()
	ec, ok := m.endpoints[key]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if ec, ok = m.endpoints[key]; !ok {
			ec = &endpointCounters{}
			m.endpoints[key] = ec
		}
		m.mu.Unlock()
	}

	ec.requests.Inc()
	ec.latency.Add(latencyMs)
	if statusCode >= 400 {
		ec.errors.Inc()
	}
}

// GetEndpointMetrics retorna uma cópia dos contadores por rota
func (m *Metrics) GetEndpointMetrics() map[string]EndpointMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]EndpointMetrics, len(m.endpoints))
	for k, ec := range m.endpoints {
		result[k] = EndpointMetrics{
			Requests:     ec.requests.Load(),
			Errors:       ec.errors.Load(),
			TotalLatency: ec.latency.Load(),
		}
	}
	return result
}

// GetAverageLatency returns average request latency in milliseconds
func (m *Metrics) GetAverageLatency() float64 {
	return ratio(m.requests.latencyMs.Load(), m.requests.total.Load())
}

// GetUptime returns the application uptime
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.start)
}

// EndpointMetricsSnapshot represents endpoint metrics in a snapshot
type EndpointMetricsSnapshot struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// RequestStats resume as requisições HTTP
type RequestStats struct {
	Total        int64   `json:"total"`
	Successful   int64   `json:"successful"`
	Failed       int64   `json:"failed"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// CommandStats conta comandos por intenção
type CommandStats struct {
	Estimate     int64 `json:"estimate"`
	Save         int64 `json:"save"`
	Download     int64 `json:"download"`
	Unrecognized int64 `json:"unrecognized"`
	RateLimited  int64 `json:"rate_limited"`
}

// QuoteStats conta operações sobre quotes salvas
type QuoteStats struct {
	Saved    int64 `json:"saved"`
	Rejected int64 `json:"rejected"`
	Deleted  int64 `json:"deleted"`
	Loaded   int64 `json:"loaded"`
}

// WebSocketStats resume o canal de voz
type WebSocketStats struct {
	Connections int64 `json:"connections"`
	MessagesIn  int64 `json:"messages_in"`
	MessagesOut int64 `json:"messages_out"`
}

// AuthStats resume cadastros e logins
type AuthStats struct {
	Signups        int64 `json:"signups"`
	LoginAttempts  int64 `json:"login_attempts"`
	LoginSuccesses int64 `json:"login_successes"`
	LoginFailures  int64 `json:"login_failures"`
}

// ReportStats conta planilhas geradas
type ReportStats struct {
	Generated int64 `json:"generated"`
	Errors    int64 `json:"errors"`
}

// DeliveryStats resume a fila de webhooks
type DeliveryStats struct {
	Queued    int64 `json:"queued"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Retries   int64 `json:"retries"`
}

// SystemStats traz números do runtime
type SystemStats struct {
	Goroutines   int    `json:"goroutines"`
	HeapAllocMB  uint64 `json:"heap_alloc_mb"`
	HeapInUseMB  uint64 `json:"heap_inuse_mb"`
	StackInUseMB uint64 `json:"stack_inuse_mb"`
	NumGC        uint32 `json:"num_gc"`
}

// MetricsSnapshot represents a point-in-time snapshot of all metrics
type MetricsSnapshot struct {
	UptimeSeconds float64        `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Requests      RequestStats   `json:"requests"`
	Estimates     int64          `json:"estimates"`
	Commands      CommandStats   `json:"commands"`
	Quotes        QuoteStats     `json:"quotes"`
	WebSocket     WebSocketStats `json:"websocket"`
	Auth          AuthStats      `json:"auth"`
	Reports       ReportStats    `json:"reports"`
	Deliveries    DeliveryStats  `json:"deliveries"`
	System        SystemStats    `json:"system"`

	Endpoints map[string]EndpointMetricsSnapshot `json:"endpoints,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		UptimeSeconds: m.GetUptime().Seconds(),
		StartTime:     m.start.Format(time.RFC3339),
		Requests: RequestStats{
			Total:        m.requests.total.Load(),
			Successful:   m.requests.successful.Load(),
			Failed:       m.requests.failed.Load(),
			AvgLatencyMs: m.GetAverageLatency(),
		},
		Estimates: m.estimates.Load(),
		Commands: CommandStats{
			Estimate:     m.commands.estimate.Load(),
			Save:         m.commands.save.Load(),
			Download:     m.commands.download.Load(),
			Unrecognized: m.commands.unrecognized.Load(),
			RateLimited:  m.commands.rateLimited.Load(),
		},
		Quotes: QuoteStats{
			Saved:    m.quotes.saved.Load(),
			Rejected: m.quotes.rejected.Load(),
			Deleted:  m.quotes.deleted.Load(),
			Loaded:   m.quotes.loaded.Load(),
		},
		WebSocket: WebSocketStats{
			Connections: m.ws.connections.Load(),
			MessagesIn:  m.ws.messagesIn.Load(),
			MessagesOut: m.ws.messagesOut.Load(),
		},
		Auth: AuthStats{
			Signups:        m.auth.signups.Load(),
			LoginAttempts:  m.auth.attempts.Load(),
			LoginSuccesses: m.auth.successes.Load(),
			LoginFailures:  m.auth.failures.Load(),
		},
		Reports: ReportStats{
			Generated: m.reports.generated.Load(),
			Errors:    m.reports.errors.Load(),
		},
		Deliveries: DeliveryStats{
			Queued:    m.deliveries.queued.Load(),
			Completed: m.deliveries.completed.Load(),
			Failed:    m.deliveries.failed.Load(),
			Retries:   m.deliveries.retries.Load(),
		},
		System: systemStats(),
	}

	endpoints := m.GetEndpointMetrics()
	if len(endpoints) > 0 {
		s.Endpoints = make(map[string]EndpointMetricsSnapshot, len(endpoints))
		for k, v := range endpoints {
			s.Endpoints[k] = EndpointMetricsSnapshot{
				Requests:     v.Requests,
				Errors:       v.Errors,
				ErrorRate:    ratio(v.Errors, v.Requests) * 100,
				AvgLatencyMs: ratio(v.TotalLatency, v.Requests),
			}
		}
	}

	return s
}

func systemStats() SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemStats{
		Goroutines:   runtime.NumGoroutine(),
		HeapAllocMB:  mem.HeapAlloc / 1024 / 1024,
		HeapInUseMB:  mem.HeapInuse / 1024 / 1024,
		StackInUseMB: mem.StackInuse / 1024 / 1024,
		NumGC:        mem.NumGC,
	}
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
