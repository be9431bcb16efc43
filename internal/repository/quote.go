package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/model"
)

// MaxQuotes é a capacidade da lista de quotes salvas
const MaxQuotes = 30

// QuoteStore mantém as estimativas salvas, da mais recente para a mais antiga.
// Toda mutação lê a lista inteira e grava a lista substituta inteira.
type QuoteStore struct {
	mu       sync.Mutex
	kv       KeyValueStore
	key      string
	capacity int
}

// NewQuoteStore cria o store de quotes na chave padrão
func NewQuoteStore(kv KeyValueStore) *QuoteStore {
	return &QuoteStore{
		kv:       kv,
		key:      QuotesKey,
		capacity: MaxQuotes,
	}
}

// Insert adiciona no início e descarta as mais antigas além da capacidade
func (s *QuoteStore) Insert(ctx context.Context, e model.Estimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes, err := s.read(ctx)
	if err != nil {
		return err
	}

	quotes = append([]model.Estimate{e}, quotes...)
	if len(quotes) > s.capacity {
		quotes = quotes[:s.capacity]
	}

	return setJSON(ctx, s.kv, s.key, quotes)
}

// List retorna as quotes salvas; lista vazia quando não há nenhuma
func (s *QuoteStore) List(ctx context.Context) ([]model.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(ctx)
}

// LoadAt retorna a quote na posição i, ou nil se o índice estiver fora do intervalo
func (s *QuoteStore) LoadAt(ctx context.Context, i int) (*model.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(quotes) {
		return nil, nil
	}

	q := quotes[i]
	return &q, nil
}

// DeleteAt remove a quote na posição i; índice fora do intervalo é no-op
func (s *QuoteStore) DeleteAt(ctx context.Context, i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes, err := s.read(ctx)
	if err != nil {
		return false, err
	}
	if i < 0 || i >= len(quotes) {
		return false, nil
	}

	remaining := make([]model.Estimate, 0, len(quotes)-1)
	remaining = append(remaining, quotes[:i]...)
	remaining = append(remaining, quotes[i+1:]...)

	if err := setJSON(ctx, s.kv, s.key, remaining); err != nil {
		return false, err
	}
	return true, nil
}

// read carrega a lista; conteúdo corrompido é tratado como lista vazia
func (s *QuoteStore) read(ctx context.Context) ([]model.Estimate, error) {
	quotes := []model.Estimate{}

	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("ler quotes: %w", err)
	}
	if !found || len(raw) == 0 {
		return quotes, nil
	}

	if err := json.Unmarshal(raw, &quotes); err != nil {
		logger.Get(ctx).Warn().Err(err).Str("key", s.key).Msg("Lista de quotes corrompida, ignorando")
		return []model.Estimate{}, nil
	}
	if quotes == nil {
		quotes = []model.Estimate{}
	}
	return quotes, nil
}
