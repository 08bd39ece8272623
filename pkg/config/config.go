package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Oracle   OracleConfig
	Mail     MailConfig
	Storage  StorageConfig
	Account  AccountConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OracleConfig points at the document-understanding service that turns an
// uploaded syllabus into free-form extraction text.
type OracleConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// MailConfig configures outbound delivery for invitations and verification codes.
type MailConfig struct {
	SendgridKey string
	FromName    string
	FromEmail   string
	Enabled     bool
}

// StorageConfig controls where note and lecture blobs live on disk.
type StorageConfig struct {
	BaseDir string
}

// AccountConfig tunes the registration verification flow.
type AccountConfig struct {
	VerificationTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: v.GetDuration("JWT_EXPIRATION"),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Oracle = OracleConfig{
		BaseURL: v.GetString("ORACLE_BASE_URL"),
		APIKey:  v.GetString("ORACLE_API_KEY"),
		Model:   v.GetString("ORACLE_MODEL"),
		Timeout: v.GetDuration("ORACLE_TIMEOUT"),
	}

	cfg.Mail = MailConfig{
		SendgridKey: v.GetString("SENDGRID_API_KEY"),
		FromName:    v.GetString("MAIL_FROM_NAME"),
		FromEmail:   v.GetString("MAIL_FROM_EMAIL"),
		Enabled:     v.GetBool("MAIL_ENABLED"),
	}

	cfg.Storage = StorageConfig{
		BaseDir: v.GetString("STORAGE_BASE_DIR"),
	}

	cfg.Account = AccountConfig{
		VerificationTTL: v.GetDuration("ACCOUNT_VERIFICATION_TTL"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classnest")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_EXPIRATION", 24*time.Hour)
	v.SetDefault("JWT_ISSUER", "classnest-api")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ORACLE_BASE_URL", "http://localhost:9090")
	v.SetDefault("ORACLE_MODEL", "syllabus-extractor-v1")
	v.SetDefault("ORACLE_TIMEOUT", 45*time.Second)

	v.SetDefault("MAIL_FROM_NAME", "ClassNest")
	v.SetDefault("MAIL_FROM_EMAIL", "no-reply@classnest.io")
	v.SetDefault("MAIL_ENABLED", false)

	v.SetDefault("STORAGE_BASE_DIR", "./uploads")

	v.SetDefault("ACCOUNT_VERIFICATION_TTL", 15*time.Minute)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
