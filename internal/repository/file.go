package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/cleberrangel/brickrate-api/internal/logger"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// FileStore persiste cada chave em um arquivo JSON dentro do diretório de dados
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore cria o store garantindo que o diretório existe.
// Diretório vazio usa DATA_DIR ou, na falta dele, o diretório temporário.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = os.Getenv("DATA_DIR")
	}
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "brickrate")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("criar diretório de dados %s: %w", dir, err)
	}

	logger.Global().Info().Str("data_dir", dir).Msg("Usando armazenamento em arquivo")
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

// Get lê o arquivo da chave
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ler arquivo: %w", err)
	}
	return data, true, nil
}

// Set grava em arquivo temporário e renomeia, para nunca deixar JSON pela metade
func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "kv_*.tmp")
	if err != nil {
		return fmt.Errorf("criar arquivo temporário: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("escrever arquivo temporário: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fechar arquivo temporário: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renomear arquivo: %w", err)
	}
	return nil
}

// Delete remove o arquivo da chave
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remover arquivo: %w", err)
	}
	return nil
}

// Ping verifica se o diretório continua acessível
func (s *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s não é um diretório", s.dir)
	}
	return nil
}
