package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
	"github.com/cleberrangel/brickrate-api/internal/model"
)

// Job status constants
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// DeliveryJob é uma entrega de documento para um webhook
type DeliveryJob struct {
	ID         string     `json:"id"`
	WebhookURL string     `json:"webhook_url"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	clientID  string
	requestID string
	estimate  model.Estimate
}

// DeliveryNotifier recebe cada mudança de status de uma entrega
type DeliveryNotifier func(clientID string, job DeliveryJob)

// QueueConfig controla os workers e as retentativas da fila
type QueueConfig struct {
	Workers     int
	Capacity    int
	MaxAttempts int
	RetryDelay  time.Duration
	Retention   time.Duration
}

// DefaultQueueConfig returns default delivery queue configuration
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:     2,
		Capacity:    100,
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
		Retention:   time.Hour,
	}
}

// DeliveryQueue entrega documentos de estimativa a webhooks em background,
// com número fixo de workers
type DeliveryQueue struct {
	webhooks *WebhookService
	reports  *ReportGenerator
	notifier DeliveryNotifier
	config   QueueConfig

	pending chan *DeliveryJob

	mu   sync.RWMutex
	jobs map[string]*DeliveryJob

	wg sync.WaitGroup
}

// NewDeliveryQueue creates a new delivery queue; notifier pode ser nil
func NewDeliveryQueue(webhooks *WebhookService, notifier DeliveryNotifier, config QueueConfig) *DeliveryQueue {
	defaults := DefaultQueueConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Capacity <= 0 {
		config.Capacity = defaults.Capacity
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}

	return &DeliveryQueue{
		webhooks: webhooks,
		reports:  NewReportGenerator(),
		notifier: notifier,
		config:   config,
		pending:  make(chan *DeliveryJob, config.Capacity),
		jobs:     make(map[string]*DeliveryJob),
	}
}

// Start inicia os workers e a limpeza; param quando ctx é cancelado
func (q *DeliveryQueue) Start(ctx context.Context) {
	logger.Global().Info().Int("workers", q.config.Workers).Msg("Iniciando fila de entregas")

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}

	q.wg.Add(1)
	go q.cleanupLoop(ctx)
}

// Wait bloqueia até os workers terminarem (após o cancelamento do ctx de Start)
func (q *DeliveryQueue) Wait() {
	q.wg.Wait()
}

// Enqueue registra a entrega da estimativa; não bloqueia
func (q *DeliveryQueue) Enqueue(ctx context.Context, clientID, webhookURL string, est model.Estimate) (DeliveryJob, error) {
	job := &DeliveryJob{
		ID:         uuid.New().String(),
		WebhookURL: webhookURL,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
		clientID:   clientID,
		requestID:  logger.GetRequestID(ctx),
		estimate:   est,
	}

	q.mu.Lock()
	select {
	case q.pending <- job:
		q.jobs[job.ID] = job
	default:
		q.mu.Unlock()
		return DeliveryJob{}, model.ErrQueueFull
	}
	snapshot := *job
	q.mu.Unlock()

	metrics.Get().IncrementDeliveryQueued()
	logger.Get(ctx).Info().
		Str("job_id", job.ID).
		Str("webhook_url", webhookURL).
		Msg("Entrega adicionada à fila")

	q.notify(snapshot)
	return snapshot, nil
}

// Get retorna a entrega se ela pertencer ao cliente
func (q *DeliveryQueue) Get(clientID, id string) (DeliveryJob, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok || job.clientID != clientID {
		return DeliveryJob{}, model.ErrDeliveryNotFound
	}
	return *job, nil
}

// ListByClient retorna as entregas do cliente, mais recente primeiro
func (q *DeliveryQueue) ListByClient(clientID string) []DeliveryJob {
	q.mu.RLock()
	defer q.mu.RUnlock()

	jobs := make([]DeliveryJob, 0)
	for _, job := range q.jobs {
		if job.clientID == clientID {
			jobs = append(jobs, *job)
		}
	}
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].CreatedAt.After(jobs[j-1].CreatedAt); j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
	return jobs
}

// Pending retorna quantas entregas aguardam um worker
func (q *DeliveryQueue) Pending() int {
	return len(q.pending)
}

// Capacity retorna o tamanho máximo da fila
func (q *DeliveryQueue) Capacity() int {
	return q.config.Capacity
}

func (q *DeliveryQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.pending:
			q.process(ctx, job)
		}
	}
}

// process gera o documento da estimativa capturada e tenta entregá-lo
func (q *DeliveryQueue) process(ctx context.Context, job *DeliveryJob) {
	jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	jobCtx = logger.WithRequestID(jobCtx, job.requestID)
	jobCtx = logger.WithClientID(jobCtx, job.clientID)
	log := logger.Get(jobCtx)

	q.update(job, func(j *DeliveryJob) { j.Status = JobStatusProcessing })

	doc, err := q.reports.Estimate(job.estimate)
	metrics.Get().IncrementReportGenerated(err == nil)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Erro ao gerar documento")
		if webhookErr := q.webhooks.SendError(jobCtx, job.WebhookURL, err); webhookErr != nil {
			log.Error().Err(webhookErr).Msg("Erro ao enviar webhook de erro")
		}
		q.finish(job, err)
		return
	}

	var lastErr error
attempts:
	for attempt := 1; attempt <= q.config.MaxAttempts; attempt++ {
		q.update(job, func(j *DeliveryJob) { j.Attempts = attempt })

		lastErr = q.webhooks.SendDocument(jobCtx, job.WebhookURL, job.estimate, doc)
		if lastErr == nil {
			break
		}

		log.Warn().
			Err(lastErr).
			Str("job_id", job.ID).
			Int("attempt", attempt).
			Msg("Falha ao entregar documento")

		if attempt == q.config.MaxAttempts || errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, model.ErrWebhookTarget) {
			break
		}
		metrics.Get().IncrementDeliveryRetry()

		select {
		case <-jobCtx.Done():
			lastErr = jobCtx.Err()
			break attempts
		case <-time.After(q.config.RetryDelay * time.Duration(attempt)):
		}
	}

	q.finish(job, lastErr)
}

func (q *DeliveryQueue) finish(job *DeliveryJob, err error) {
	now := time.Now()
	q.update(job, func(j *DeliveryJob) {
		j.FinishedAt = &now
		if err != nil {
			j.Status = JobStatusFailed
			j.Error = err.Error()
		} else {
			j.Status = JobStatusCompleted
		}
	})
	metrics.Get().IncrementDeliveryFinished(err == nil)

	logger.Audit(logger.WithClientID(context.Background(), job.clientID), logger.AuditEvent{
		Action:     logger.AuditActionWebhookDelivery,
		Resource:   "webhook",
		ResourceID: job.ID,
		Success:    err == nil,
		Error:      errorString(err),
	})
}

// update aplica fn sob lock e notifica o cliente com o novo estado
func (q *DeliveryQueue) update(job *DeliveryJob, fn func(j *DeliveryJob)) {
	q.mu.Lock()
	fn(job)
	snapshot := *job
	q.mu.Unlock()

	q.notify(snapshot)
}

func (q *DeliveryQueue) notify(job DeliveryJob) {
	if q.notifier != nil {
		q.notifier(job.clientID, job)
	}
}

func (q *DeliveryQueue) cleanupLoop(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.Retention / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.removeFinished(time.Now().Add(-q.config.Retention))
		}
	}
}

// removeFinished descarta entregas concluídas ou falhas antes de cutoff
func (q *DeliveryQueue) removeFinished(cutoff time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for id, job := range q.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(q.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Global().Debug().Int("removed", removed).Msg("Entregas antigas removidas")
	}
	return removed
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
