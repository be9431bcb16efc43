package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Chaves estáveis do estado persistido
const (
	QuotesKey  = "brickrate_quotes_v1"
	UsersKey   = "brickrate_users_v1"
	SessionKey = "brickrate_session_v1"
)

// KeyValueStore é o armazenamento chave-valor usado por quotes, usuários e sessões
type KeyValueStore interface {
	// Get retorna o valor e false quando a chave não existe
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Pinger é implementado por backends que conseguem verificar conectividade
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStore guarda os valores em memória (testes e STORE_BACKEND=memory)
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore cria um store em memória vazio
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// Get retorna uma cópia do valor armazenado
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set substitui o valor da chave
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.items[key] = v
	return nil
}

// Delete remove a chave (no-op se não existir)
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Ping sempre responde; o store em memória não tem conexão a verificar
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// getJSON decodifica o valor da chave em dst; found=false se a chave não existe
func getJSON(ctx context.Context, kv KeyValueStore, key string, dst interface{}) (bool, error) {
	raw, found, err := kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("ler chave %s: %w", key, err)
	}
	if !found || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decodificar chave %s: %w", key, err)
	}
	return true, nil
}

// setJSON codifica value e grava na chave
func setJSON(ctx context.Context, kv KeyValueStore, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("codificar chave %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("gravar chave %s: %w", key, err)
	}
	return nil
}
