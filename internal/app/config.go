package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/smartboard-backend/internal/data/db"
	"github.com/yungbote/smartboard-backend/internal/http/handlers"
	"github.com/yungbote/smartboard-backend/internal/observability"
	"github.com/yungbote/smartboard-backend/internal/platform/envutil"
	"github.com/yungbote/smartboard-backend/internal/platform/gcp"
	"github.com/yungbote/smartboard-backend/internal/platform/openai"
	"github.com/yungbote/smartboard-backend/internal/services"
)

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	UploadMaxBytes  int64         `yaml:"upload_max_bytes"`
}

type DBConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
}

type AuthConfig struct {
	JWTSecretKey       string        `yaml:"jwt_secret_key"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	GoogleOIDCClientID string        `yaml:"google_oidc_client_id"`
	AllowMockToken     *bool         `yaml:"allow_mock_token"`
	MockToken          string        `yaml:"mock_token"`
}

type AIConfig struct {
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	MaxContextChars int           `yaml:"max_context_chars"`
	NotesCacheTTL   time.Duration `yaml:"notes_cache_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type GCPConfig struct {
	UploadBucket       string `yaml:"upload_bucket"`
	CDNDomain          string `yaml:"cdn_domain"`
	DocAIProjectID     string `yaml:"docai_project_id"`
	DocAILocation      string `yaml:"docai_location"`
	DocAIProcessorID   string `yaml:"docai_processor_id"`
	DocAIProcessorVers string `yaml:"docai_processor_version"`
}

type AvatarConfig struct {
	Palette  []string `yaml:"palette"`
	FontPath string   `yaml:"font_path"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Config is resolved as defaults, then the optional CONFIG_FILE overlay,
// then environment variables.
type Config struct {
	Env     string       `yaml:"env"`
	Version string       `yaml:"version"`
	HTTP    HTTPConfig   `yaml:"http"`
	DB      DBConfig     `yaml:"db"`
	Auth    AuthConfig   `yaml:"auth"`
	AI      AIConfig     `yaml:"ai"`
	Redis   RedisConfig  `yaml:"redis"`
	GCP     GCPConfig    `yaml:"gcp"`
	Avatar  AvatarConfig `yaml:"avatar"`
	Otel    OtelConfig   `yaml:"otel"`
}

func defaultConfig() Config {
	return Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
			UploadMaxBytes:  handlers.DefaultUploadMaxBytes,
		},
		DB: DBConfig{
			Driver:     db.DriverPostgres,
			Host:       "localhost",
			Port:       "5432",
			User:       "postgres",
			Name:       "smartboard",
			SSLMode:    "disable",
			SQLitePath: "smartboard.db",
		},
		Auth: AuthConfig{
			SessionTTL: services.DefaultSessionTTL,
			MockToken:  services.DefaultMockToken,
		},
		AI: AIConfig{
			Timeout:         180 * time.Second,
			MaxContextChars: services.DefaultMaxContextChars,
			NotesCacheTTL:   services.DefaultNotesTTL,
		},
		Redis: RedisConfig{Channel: "sse"},
		GCP:   GCPConfig{DocAILocation: "us"},
		Otel:  OtelConfig{ServiceName: "smartboard", SampleRatio: 1},
	}
}

func (c Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "prod", "production":
		return true
	}
	return false
}

// MockTokenAllowed defaults to on outside production.
func (c Config) MockTokenAllowed() bool {
	if c.Auth.AllowMockToken != nil {
		return *c.Auth.AllowMockToken
	}
	return !c.IsProduction()
}

func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("APP_ENV", cfg.Env)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)

	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.ShutdownTimeout = envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)
	if origins := envutil.List("CORS_ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.HTTP.CORSOrigins = origins
	}
	cfg.HTTP.UploadMaxBytes = envutil.Int64("LESSON_UPLOAD_MAX_BYTES", cfg.HTTP.UploadMaxBytes)

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.DSN = envutil.String("DATABASE_URL", cfg.DB.DSN)
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)

	cfg.Auth.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecretKey)
	cfg.Auth.SessionTTL = envutil.Duration("SESSION_TOKEN_TTL", cfg.Auth.SessionTTL)
	cfg.Auth.GoogleOIDCClientID = envutil.String("GOOGLE_OIDC_CLIENT_ID", cfg.Auth.GoogleOIDCClientID)
	if v := envutil.String("AUTH_ALLOW_MOCK_TOKEN", ""); v != "" {
		allow := envutil.Bool("AUTH_ALLOW_MOCK_TOKEN", false)
		cfg.Auth.AllowMockToken = &allow
	}
	cfg.Auth.MockToken = envutil.String("AUTH_MOCK_TOKEN", cfg.Auth.MockToken)

	cfg.AI.Model = envutil.String("OPENAI_MODEL", cfg.AI.Model)
	cfg.AI.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.Timeout = envutil.Duration("OPENAI_TIMEOUT_SECONDS", cfg.AI.Timeout)
	cfg.AI.MaxRetries = envutil.Int("OPENAI_MAX_RETRIES", cfg.AI.MaxRetries)
	cfg.AI.MaxContextChars = envutil.Int("AI_MAX_CONTEXT_CHARS", cfg.AI.MaxContextChars)
	cfg.AI.NotesCacheTTL = envutil.Duration("NOTES_CACHE_TTL", cfg.AI.NotesCacheTTL)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.GCP.UploadBucket = envutil.String("LESSON_UPLOAD_BUCKET", cfg.GCP.UploadBucket)
	cfg.GCP.CDNDomain = envutil.String("LESSON_UPLOAD_CDN_DOMAIN", cfg.GCP.CDNDomain)
	cfg.GCP.DocAIProjectID = envutil.String("DOCAI_PROJECT_ID", cfg.GCP.DocAIProjectID)
	cfg.GCP.DocAILocation = envutil.String("DOCAI_LOCATION", cfg.GCP.DocAILocation)
	cfg.GCP.DocAIProcessorID = envutil.String("DOCAI_PROCESSOR_ID", cfg.GCP.DocAIProcessorID)
	cfg.GCP.DocAIProcessorVers = envutil.String("DOCAI_PROCESSOR_VERSION", cfg.GCP.DocAIProcessorVers)

	if palette := envutil.List("AVATAR_PALETTE"); len(palette) > 0 {
		cfg.Avatar.Palette = palette
	}
	cfg.Avatar.FontPath = envutil.String("AVATAR_FONT_PATH", cfg.Avatar.FontPath)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Auth.JWTSecretKey) == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("SESSION_TOKEN_TTL must be positive")
	}
	if c.HTTP.UploadMaxBytes <= 0 {
		return errors.New("LESSON_UPLOAD_MAX_BYTES must be positive")
	}
	if c.IsProduction() && c.MockTokenAllowed() {
		return errors.New("AUTH_ALLOW_MOCK_TOKEN must be off in production")
	}
	return nil
}

func (c Config) dbConfig() db.Config {
	return db.Config{
		Driver:     c.DB.Driver,
		DSN:        c.DB.DSN,
		Host:       c.DB.Host,
		Port:       c.DB.Port,
		User:       c.DB.User,
		Password:   c.DB.Password,
		Name:       c.DB.Name,
		SSLMode:    c.DB.SSLMode,
		SQLitePath: c.DB.SQLitePath,
	}
}

func (c Config) openaiConfig() openai.Config {
	base := openai.ConfigFromEnv()
	base.Model = c.AI.Model
	base.BaseURL = c.AI.BaseURL
	base.Timeout = c.AI.Timeout
	base.MaxRetries = c.AI.MaxRetries
	return base
}

func (c Config) documentConfig() gcp.DocumentConfig {
	return gcp.DocumentConfig{
		ProjectID:        c.GCP.DocAIProjectID,
		Location:         c.GCP.DocAILocation,
		ProcessorID:      c.GCP.DocAIProcessorID,
		ProcessorVersion: c.GCP.DocAIProcessorVers,
	}
}

func (c Config) otelConfig() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Env,
		Version:     c.Version,
		Endpoint:    c.Otel.Endpoint,
		Headers:     observability.ParseHeaders(c.Otel.Headers),
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}
