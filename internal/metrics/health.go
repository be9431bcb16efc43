package metrics

import (
	"context"
	"runtime"
	"time"
)

// Estados de saúde de um componente
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const (
	// storePingTimeout limita o health check do armazenamento
	storePingTimeout = 2 * time.Second
	// storeSlowPing acima disso o armazenamento é reportado como degradado
	storeSlowPing = 100 * time.Millisecond
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// Pinger é qualquer backend de armazenamento que responde a ping
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckStoreHealth pinga o backend de quotes/usuários com timeout
func CheckStoreHealth(ctx context.Context, store Pinger) HealthStatus {
	if store == nil {
		return HealthStatus{Status: StatusUnhealthy, Message: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()

	start := time.Now()
	err := store.Ping(ctx)
	latency := time.Since(start)

	switch {
	case err != nil:
		return HealthStatus{Status: StatusUnhealthy, Message: err.Error(), Latency: latency.Milliseconds()}
	case latency > storeSlowPing:
		return HealthStatus{Status: StatusDegraded, Message: "high latency", Latency: latency.Milliseconds()}
	default:
		return HealthStatus{Status: StatusHealthy, Latency: latency.Milliseconds()}
	}
}

// CheckMemoryHealth compara o heap com maxHeapMB; acima de 80% é degradado
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return memoryHealth(mem.HeapAlloc/1024/1024, maxHeapMB)
}

func memoryHealth(heapMB, maxHeapMB uint64) HealthStatus {
	switch {
	case heapMB > maxHeapMB:
		return HealthStatus{Status: StatusUnhealthy, Message: "heap memory exceeds limit"}
	case heapMB > maxHeapMB*80/100:
		return HealthStatus{Status: StatusDegraded, Message: "heap memory usage high"}
	default:
		return HealthStatus{Status: StatusHealthy}
	}
}

// DetermineOverallStatus retorna o pior estado entre os componentes
func DetermineOverallStatus(components map[string]HealthStatus) string {
	overall := StatusHealthy
	for _, c := range components {
		switch c.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}
