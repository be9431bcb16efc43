package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cleberrangel/brickrate-api/internal/cache"
	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/repository"
)

// Mensagens exibidas ao usuário após cada comando
const (
	MsgRunEstimateFirst = "Run an estimate first"
	MsgLoginToSave      = "Please login to save quotes"
	MsgQuoteSaved       = "Quote saved locally"
	MsgReportReady      = "Estimate document ready"
	MsgQuoteDeleted     = "Deleted"
)

// DefaultStateTTL é por quanto tempo a última estimativa de um cliente fica disponível
const DefaultStateTTL = 24 * time.Hour

// CommandResult é o resultado de um comando em texto livre
type CommandResult struct {
	Intent    model.Intent `json:"intent"`
	Message   string       `json:"message"`
	Rendering *Rendering   `json:"result,omitempty"`
	Document  *Document    `json:"-"`
}

// EstimateService coordena motor, interpretador, quotes e documentos,
// guardando a última estimativa e o último request de cada cliente
type EstimateService struct {
	engine      *Estimator
	interpreter *Interpreter
	quotes      *repository.QuoteStore
	reports     *ReportGenerator
	state       *cache.Cache
	delay       time.Duration
}

// NewEstimateService cria o serviço de estimativas.
// delay simula o tempo de processamento antes de cada cálculo (0 desativa).
func NewEstimateService(quotes *repository.QuoteStore, state *cache.Cache, delay time.Duration) *EstimateService {
	return &EstimateService{
		engine:      NewEstimator(),
		interpreter: NewInterpreter(),
		quotes:      quotes,
		reports:     NewReportGenerator(),
		state:       state,
		delay:       delay,
	}
}

// Estimate calcula a estimativa e a registra como a última do cliente
func (s *EstimateService) Estimate(ctx context.Context, clientID string, req model.EstimateRequest) (model.Estimate, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.Estimate{}, ctx.Err()
		case <-timer.C:
		}
	}

	est := s.engine.Estimate(req)

	s.state.Set(estimateKey(clientID), est)
	s.state.Set(requestKey(clientID), req)
	metrics.Get().IncrementEstimate()

	logger.Get(ctx).Debug().
		Str("city", est.CityName).
		Str("house_type", string(est.HouseType)).
		Int64("avg_total", est.AvgTotal).
		Msg("Estimativa calculada")

	return est, nil
}

// LastEstimate retorna a última estimativa do cliente
func (s *EstimateService) LastEstimate(clientID string) (*model.Estimate, bool) {
	v, ok := s.state.Get(estimateKey(clientID))
	if !ok {
		return nil, false
	}
	est, ok := v.(model.Estimate)
	if !ok {
		return nil, false
	}
	return &est, true
}

// LastRequest retorna o último request do cliente (zero value quando não há)
func (s *EstimateService) LastRequest(clientID string) model.EstimateRequest {
	v, ok := s.state.Get(requestKey(clientID))
	if !ok {
		return model.EstimateRequest{}
	}
	req, _ := v.(model.EstimateRequest)
	return req
}

// Command interpreta o texto e executa a intenção reconhecida
func (s *EstimateService) Command(ctx context.Context, clientID string, user *User, text string) (*CommandResult, error) {
	intent := s.interpreter.Interpret(text, s.LastRequest(clientID))
	metrics.Get().IncrementCommand(string(intent.Kind))

	result := &CommandResult{Intent: intent}

	switch intent.Kind {
	case model.IntentEstimate:
		est, err := s.Estimate(ctx, clientID, *intent.Request)
		if err != nil {
			return nil, err
		}
		r := Render(est)
		result.Rendering = &r
		result.Message = r.Speech

	case model.IntentSave:
		err := s.Save(ctx, clientID, user)
		switch err {
		case nil:
			result.Message = MsgQuoteSaved
		case model.ErrNotLoggedIn:
			result.Message = MsgLoginToSave
		case model.ErrNoEstimate:
			result.Message = MsgRunEstimateFirst
		default:
			return nil, err
		}

	case model.IntentDownload:
		doc, err := s.Download(clientID)
		switch err {
		case nil:
			result.Document = doc
			result.Message = MsgReportReady
		case model.ErrNoEstimate:
			result.Message = MsgRunEstimateFirst
		default:
			return nil, err
		}

	default:
		result.Message = HelpPrompt
	}

	return result, nil
}

// Save grava a última estimativa do cliente como quote; exige sessão
func (s *EstimateService) Save(ctx context.Context, clientID string, user *User) error {
	if user == nil {
		metrics.Get().IncrementQuoteSaved(false)
		return model.ErrNotLoggedIn
	}

	est, ok := s.LastEstimate(clientID)
	if !ok {
		metrics.Get().IncrementQuoteSaved(false)
		return model.ErrNoEstimate
	}

	if err := s.quotes.Insert(ctx, *est); err != nil {
		metrics.Get().IncrementQuoteSaved(false)
		return fmt.Errorf("erro ao salvar quote: %w", err)
	}

	metrics.Get().IncrementQuoteSaved(true)
	return nil
}

// Download gera o documento da última estimativa do cliente
func (s *EstimateService) Download(clientID string) (*Document, error) {
	est, ok := s.LastEstimate(clientID)
	if !ok {
		return nil, model.ErrNoEstimate
	}

	doc, err := s.reports.Estimate(*est)
	metrics.Get().IncrementReportGenerated(err == nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar documento: %w", err)
	}
	return doc, nil
}

// ListQuotes retorna as quotes salvas, mais recente primeiro
func (s *EstimateService) ListQuotes(ctx context.Context) ([]model.Estimate, error) {
	return s.quotes.List(ctx)
}

// Reload recarrega a quote i: reconstrói o request aproximado e recalcula
func (s *EstimateService) Reload(ctx context.Context, clientID string, i int) (model.Estimate, error) {
	q, err := s.quotes.LoadAt(ctx, i)
	if err != nil {
		return model.Estimate{}, fmt.Errorf("erro ao carregar quote: %w", err)
	}
	if q == nil {
		return model.Estimate{}, model.ErrQuoteNotFound
	}

	metrics.Get().IncrementQuoteLoaded()
	return s.Estimate(ctx, clientID, RequestFromEstimate(*q))
}

// DeleteQuote remove a quote i; ErrQuoteNotFound quando o índice não existe
func (s *EstimateService) DeleteQuote(ctx context.Context, i int) error {
	deleted, err := s.quotes.DeleteAt(ctx, i)
	if err != nil {
		return fmt.Errorf("erro ao remover quote: %w", err)
	}
	if !deleted {
		return model.ErrQuoteNotFound
	}

	metrics.Get().IncrementQuoteDeleted()
	return nil
}

// ExportQuotes gera a planilha com todas as quotes salvas
func (s *EstimateService) ExportQuotes(ctx context.Context) (*Document, error) {
	quotes, err := s.quotes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar quotes: %w", err)
	}

	doc, err := s.reports.Quotes(quotes)
	metrics.Get().IncrementReportGenerated(err == nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar planilha: %w", err)
	}
	return doc, nil
}

// StateStats expõe os contadores do estado de trabalho por cliente
func (s *EstimateService) StateStats() cache.Stats {
	return s.state.Stats()
}

// Forget descarta o estado de trabalho do cliente
func (s *EstimateService) Forget(clientID string) {
	s.state.InvalidatePrefix(clientPrefix(clientID))
}

// Adopt move a última estimativa e o último request de from para to.
// Usado no login e no logout, quando o identificador do cliente muda.
func (s *EstimateService) Adopt(from, to string) bool {
	if from == to {
		return false
	}
	est, ok := s.state.Get(estimateKey(from))
	if !ok {
		return false
	}

	s.state.Set(estimateKey(to), est)
	if req, ok := s.state.Get(requestKey(from)); ok {
		s.state.Set(requestKey(to), req)
	}
	s.Forget(from)
	return true
}

func clientPrefix(clientID string) string {
	return "client:" + clientID + ":"
}

func estimateKey(clientID string) string {
	return clientPrefix(clientID) + "estimate"
}

func requestKey(clientID string) string {
	return clientPrefix(clientID) + "request"
}
