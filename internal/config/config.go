package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of the server and the migrator.
//
// Values are layered: defaults, then the optional YAML file named by
// CONFIG_FILE, then environment variables (a .env file in the working
// directory is loaded into the environment first).
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Database DBConfig      `yaml:"database"`
	JWT      JWTConfig     `yaml:"jwt"`
	Uploads  UploadsConfig `yaml:"uploads"`
	CORS     CORSConfig    `yaml:"cors"`
	Log      LogConfig     `yaml:"log"`
	Admin    AdminConfig   `yaml:"admin"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type JWTConfig struct {
	SecretKey       string `yaml:"secret_key"`
	ExpirationHours int64  `yaml:"expiration_hours"`
}

type UploadsConfig struct {
	Dir         string `yaml:"dir"`
	MaxFileSize int64  `yaml:"max_file_size"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// AdminConfig is the default admin seeded by the migrator
type AdminConfig struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DBConfig{Port: "5432", SSLMode: "disable", MaxConns: 10},
		JWT:      JWTConfig{ExpirationHours: 24},
		Uploads:  UploadsConfig{Dir: "uploads", MaxFileSize: 5 * 1024 * 1024},
		CORS:     CORSConfig{AllowOrigins: []string{"*"}},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from .env, CONFIG_FILE and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	envString("SERVER_PORT", &c.Server.Port)

	envString("DB_HOST", &c.Database.Host)
	envString("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Name)
	envString("DB_SSLMODE", &c.Database.SSLMode)

	envString("JWT_SECRET_KEY", &c.JWT.SecretKey)
	envString("UPLOADS_DIR", &c.Uploads.Dir)
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	envString("ADMIN_USERNAME", &c.Admin.Username)
	envString("ADMIN_EMAIL", &c.Admin.Email)
	envString("ADMIN_PASSWORD", &c.Admin.Password)

	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		c.CORS.AllowOrigins = splitList(v)
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid DB_MAX_CONNS %q: %w", v, err)
		}
		c.Database.MaxConns = int32(n)
	}
	if err := envInt64("JWT_EXPIRATION_HOURS", &c.JWT.ExpirationHours); err != nil {
		return err
	}
	return envInt64("UPLOAD_MAX_FILE_SIZE", &c.Uploads.MaxFileSize)
}

// Validate reports the first missing or out of range setting
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.Port == "" || c.Database.User == "" || c.Database.Name == "" {
		return errors.New("database settings not set (DB_HOST, DB_PORT, DB_USER, DB_NAME)")
	}
	if c.JWT.SecretKey == "" {
		return errors.New("JWT_SECRET_KEY not set")
	}
	if c.JWT.ExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", c.JWT.ExpirationHours)
	}
	if c.Uploads.MaxFileSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive, got %d", c.Uploads.MaxFileSize)
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.Database.MaxConns)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the process logger described by cfg
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
