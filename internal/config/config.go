package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret = "change-me-jwt-secret"
	defaultMaxBody   = 32 << 20
	defaultMaxFile   = 10 << 20
)

// Config holds the runtime settings of the API server and the seeder.
type Config struct {
	AppEnv             string        `mapstructure:"app_env"`
	HTTPAddr           string        `mapstructure:"http_addr"`
	DatabaseURL        string        `mapstructure:"database_url"`
	JWTSecret          string        `mapstructure:"jwt_secret"`
	JWTTTL             time.Duration `mapstructure:"jwt_ttl"`
	ResourcesRoot      string        `mapstructure:"resources_root"`
	PublicBaseURL      string        `mapstructure:"public_base_url"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	MaxFileBytes       int64         `mapstructure:"max_file_bytes"`
	MaxFiles           int           `mapstructure:"max_files"`
	UploadTimeout      time.Duration `mapstructure:"upload_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
}

// Load reads .env (if present), then config.yaml from path (if present),
// then the environment. Environment variables use the upper-case key
// names, e.g. MAX_FILES.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app_env", "dev")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database_url", "filedrop.db")
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("resources_root", "./resources")
	v.SetDefault("public_base_url", "")
	v.SetDefault("max_body_bytes", defaultMaxBody)
	v.SetDefault("max_file_bytes", defaultMaxFile)
	v.SetDefault("max_files", 10)
	v.SetDefault("upload_timeout", "2m")
	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be > 0")
	}
	if cfg.MaxFileBytes <= 0 {
		return fmt.Errorf("MAX_FILE_BYTES must be > 0")
	}
	if cfg.MaxFileBytes > cfg.MaxBodyBytes {
		return fmt.Errorf("MAX_FILE_BYTES must not exceed MAX_BODY_BYTES")
	}
	if cfg.MaxFiles <= 0 {
		return fmt.Errorf("MAX_FILES must be > 0")
	}
	if cfg.UploadTimeout < 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT must be >= 0")
	}
	if strings.TrimSpace(cfg.ResourcesRoot) == "" {
		return fmt.Errorf("RESOURCES_ROOT must not be empty")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}

	if cfg.IsProdLike() && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	return nil
}

func (c *Config) IsProdLike() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

// splitList accepts both a YAML list and a single comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
