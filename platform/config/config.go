// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailChannelConfig provides settings for the SMTP email channel provider.
type EmailChannelConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsEmailChannelEnabled() bool
}

// WhatsAppConfig provides settings for the WhatsApp gateway provider.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// SMSConfig provides settings for the SMS gateway provider.
type SMSConfig interface {
	GetSMSGatewayURL() string
	GetSMSGatewayKey() string
	GetSMSSenderID() string
}

// TelegramConfig provides settings for the Telegram bot provider.
type TelegramConfig interface {
	GetTelegramBotToken() string
	GetTelegramAPIBase() string
}

// VoiceConfig provides settings for the outbound voice call gateway.
type VoiceConfig interface {
	GetVoiceGatewayURL() string
	GetVoiceGatewayKey() string
	GetVoiceCallerID() string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCallRecordings() string
	IsMinIOEnabled() bool
}

// OutreachConfig provides settings for the outreach dispatcher.
type OutreachConfig interface {
	GetOutreachRetryCeiling() int
	GetOutreachBackoffBase() time.Duration
	GetOutreachBackoffMax() time.Duration
}

// ScoringConfig provides settings for the lead scoring engine.
type ScoringConfig interface {
	GetScoringLookbackDays() int
	GetScoringMaxInteractions() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	JWTAccessSecret           string
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	EmailFromName             string
	EmailFromAddress          string
	WhatsAppURL               string
	WhatsAppKey               string
	WhatsAppDeviceID          string
	SMSGatewayURL             string
	SMSGatewayKey             string
	SMSSenderID               string
	TelegramBotToken          string
	TelegramAPIBase           string
	VoiceGatewayURL           string
	VoiceGatewayKey           string
	VoiceCallerID             string
	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinioBucketCallRecordings string
	OutreachRetryCeiling      int
	OutreachBackoffBase       time.Duration
	OutreachBackoffMax        time.Duration
	ScoringLookbackDays       int
	ScoringMaxInteractions    int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EmailChannelConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsEmailChannelEnabled() bool { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

// SMSConfig implementation
func (c *Config) GetSMSGatewayURL() string { return c.SMSGatewayURL }
func (c *Config) GetSMSGatewayKey() string { return c.SMSGatewayKey }
func (c *Config) GetSMSSenderID() string   { return c.SMSSenderID }

// TelegramConfig implementation
func (c *Config) GetTelegramBotToken() string { return c.TelegramBotToken }
func (c *Config) GetTelegramAPIBase() string  { return c.TelegramAPIBase }

// VoiceConfig implementation
func (c *Config) GetVoiceGatewayURL() string { return c.VoiceGatewayURL }
func (c *Config) GetVoiceGatewayKey() string { return c.VoiceGatewayKey }
func (c *Config) GetVoiceCallerID() string   { return c.VoiceCallerID }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCallRecordings() string {
	return c.MinioBucketCallRecordings
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// OutreachConfig implementation
func (c *Config) GetOutreachRetryCeiling() int           { return c.OutreachRetryCeiling }
func (c *Config) GetOutreachBackoffBase() time.Duration  { return c.OutreachBackoffBase }
func (c *Config) GetOutreachBackoffMax() time.Duration   { return c.OutreachBackoffMax }

// ScoringConfig implementation
func (c *Config) GetScoringLookbackDays() int    { return c.ScoringLookbackDays }
func (c *Config) GetScoringMaxInteractions() int { return c.ScoringMaxInteractions }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		JWTAccessSecret:           getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:          mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SMTPHost:                  getEnv("SMTP_HOST", ""),
		SMTPPort:                  mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:              getEnv("SMTP_USERNAME", ""),
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "CRM"),
		EmailFromAddress:          getEnv("EMAIL_FROM_ADDRESS", ""),
		WhatsAppURL:               getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:               getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:          getEnv("WHATSAPP_DEVICE_ID", ""),
		SMSGatewayURL:             getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayKey:             getEnv("SMS_GATEWAY_KEY", ""),
		SMSSenderID:               getEnv("SMS_SENDER_ID", ""),
		TelegramBotToken:          getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIBase:           getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		VoiceGatewayURL:           getEnv("VOICE_GATEWAY_URL", ""),
		VoiceGatewayKey:           getEnv("VOICE_GATEWAY_KEY", ""),
		VoiceCallerID:             getEnv("VOICE_CALLER_ID", ""),
		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketCallRecordings: getEnv("MINIO_BUCKET_CALL_RECORDINGS", "call-recordings"),
		OutreachRetryCeiling:      mustInt(getEnv("OUTREACH_RETRY_CEILING", "3")),
		OutreachBackoffBase:       mustDuration(getEnv("OUTREACH_BACKOFF_BASE", "2s")),
		OutreachBackoffMax:        mustDuration(getEnv("OUTREACH_BACKOFF_MAX", "1m")),
		ScoringLookbackDays:       mustInt(getEnv("SCORING_LOOKBACK_DAYS", "90")),
		ScoringMaxInteractions:    mustInt(getEnv("SCORING_MAX_INTERACTIONS", "50")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.OutreachRetryCeiling < 0 {
		return nil, fmt.Errorf("OUTREACH_RETRY_CEILING must not be negative")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
