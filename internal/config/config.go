package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/casperflow/remitd/pkg/validation"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string

	// Escrow configuration
	// EscrowAccount is the custody account that holds pooled funds.
	EscrowAccount string
	// OwnerPrincipal is seeded as the platform owner on first startup.
	OwnerPrincipal string
	// FeeCollector is seeded as the fee recipient on first startup.
	FeeCollector string
	// DefaultFeeBps is the fee seeded on first startup (0-500).
	DefaultFeeBps uint64

	// Settlement configuration
	CustodyServiceURL string
	ChainRPCURL       string

	// SMTP configuration
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	SMTPSender      string
	EmailRecipients []string

	// Notification configuration
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "remitd"),

		EscrowAccount:  getEnv("ESCROW_ACCOUNT", ""),
		OwnerPrincipal: getEnv("OWNER_PRINCIPAL", ""),
		FeeCollector:   getEnv("FEE_COLLECTOR", ""),
		DefaultFeeBps:  getEnvAsUint64("DEFAULT_FEE_BPS", 50),

		CustodyServiceURL: getEnv("CUSTODY_SERVICE_URL", "http://localhost:7781"),
		ChainRPCURL:       getEnv("CHAIN_RPC_URL", ""),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:        getEnv("SMTP_USER", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPSender:      getEnv("SMTP_SENDER", ""),
		EmailRecipients: getEnvAsList("EMAIL_RECIPIENTS"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		APIPort: getEnvAsInt("API_PORT", 6571),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.EscrowAccount == "" {
		return fmt.Errorf("ESCROW_ACCOUNT is required")
	}
	if err := validation.ValidatePrincipal(c.EscrowAccount); err != nil {
		return fmt.Errorf("invalid ESCROW_ACCOUNT: %w", err)
	}

	if c.OwnerPrincipal == "" {
		return fmt.Errorf("OWNER_PRINCIPAL is required")
	}
	if err := validation.ValidatePrincipal(c.OwnerPrincipal); err != nil {
		return fmt.Errorf("invalid OWNER_PRINCIPAL: %w", err)
	}

	if c.FeeCollector == "" {
		return fmt.Errorf("FEE_COLLECTOR is required")
	}
	if err := validation.ValidatePrincipal(c.FeeCollector); err != nil {
		return fmt.Errorf("invalid FEE_COLLECTOR: %w", err)
	}

	if c.DefaultFeeBps > 500 {
		return fmt.Errorf("DEFAULT_FEE_BPS must not exceed 500")
	}

	if c.CustodyServiceURL == "" {
		return fmt.Errorf("CUSTODY_SERVICE_URL is required")
	}

	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsUint64(name string, defaultValue uint64) uint64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseUint(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsList(name string) []string {
	valueStr, exists := os.LookupEnv(name)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
