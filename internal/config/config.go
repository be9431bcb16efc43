package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends de armazenamento suportados
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config armazena as configurações da aplicação
type Config struct {
	Port    string
	GinMode string

	LogLevel string
	LogJSON  bool

	StoreBackend string
	DataDir      string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	SessionTTL           time.Duration
	CommandRatePerMinute int
	EstimateDelay        time.Duration

	// Fila de entregas de webhook
	WebhookWorkers      int
	WebhookMaxAttempts  int
	WebhookAllowPrivate bool // libera webhooks em loopback/rede privada (dev)

	// AdminToken protege as rotas /debug (vazio = abertas)
	AdminToken string
}

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	// Tenta carregar .env de múltiplos locais
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreFile)),
		DataDir:      os.Getenv("DATA_DIR"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   os.Getenv("DB_PASSWORD"),
		DBName:       getEnv("DB_NAME", "brickrate"),
		DBSSLMode:    getEnv("DB_SSLMODE", "disable"),
		AdminToken:   os.Getenv("ADMIN_TOKEN"),
	}

	var err error
	if cfg.LogJSON, err = getBool("LOG_JSON", false); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EstimateDelay, err = getDuration("ESTIMATE_DELAY", 0); err != nil {
		return nil, err
	}
	if cfg.CommandRatePerMinute, err = getInt("COMMAND_RATE_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	if cfg.WebhookWorkers, err = getInt("WEBHOOK_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.WebhookMaxAttempts, err = getInt("WEBHOOK_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.WebhookAllowPrivate, err = getBool("WEBHOOK_ALLOW_PRIVATE", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate verifica combinações inválidas de configuração
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreFile, StorePostgres:
	default:
		return fmt.Errorf("STORE_BACKEND inválido: %q (use memory, file ou postgres)", c.StoreBackend)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL deve ser positivo")
	}
	if c.EstimateDelay < 0 {
		return fmt.Errorf("ESTIMATE_DELAY não pode ser negativo")
	}
	if c.CommandRatePerMinute <= 0 {
		return fmt.Errorf("COMMAND_RATE_PER_MINUTE deve ser positivo")
	}
	if c.WebhookWorkers <= 0 {
		return fmt.Errorf("WEBHOOK_WORKERS deve ser positivo")
	}
	if c.WebhookMaxAttempts <= 0 {
		return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS deve ser positivo")
	}

	if c.StoreBackend == StorePostgres && c.DBHost == "" {
		return fmt.Errorf("DB_HOST obrigatório com STORE_BACKEND=postgres")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s inválido: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return d, nil
}
