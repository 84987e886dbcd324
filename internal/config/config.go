// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"krako-ledger/internal/domain"
	"krako-ledger/internal/util"
	"krako-ledger/pkg/db"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string          `yaml:"server_port" validate:"required,numeric"`
	HTTP       HTTPConfig      `yaml:"http"`
	DB         db.Config       `yaml:"db"`
	Claim      ClaimConfig     `yaml:"claim"`
	Auth       AuthConfig      `yaml:"auth"`
	Log        util.LogOptions `yaml:"log"`
}

// ClaimConfig holds the daily claim policy.
type ClaimConfig struct {
	MaxDailyClaims   int    `yaml:"max_daily_claims" validate:"min=1,max=1000"`
	DailyClaimAmount string `yaml:"daily_claim_amount" validate:"required,numeric"`
	// TimeZone is the IANA zone whose midnight starts a new claim day.
	TimeZone     string        `yaml:"time_zone" validate:"required"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// serverWriteGrace keeps the server's write deadline past the router's request timeout,
// so the router can still answer 504 on timeout.
const serverWriteGrace = 5 * time.Second

// HTTPConfig holds the HTTP server and router deadlines.
type HTTPConfig struct {
	// RequestTimeout bounds each request inside the router.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

// WriteTimeout is the server write deadline derived from RequestTimeout.
func (c HTTPConfig) WriteTimeout() time.Duration {
	return c.RequestTimeout + serverWriteGrace
}

// AuthConfig holds the identity provider's token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" validate:"omitempty,min=16"`
}

// Policy converts the claim settings into a domain.ClaimPolicy.
func (c ClaimConfig) Policy() (domain.ClaimPolicy, error) {
	amount, err := decimal.NewFromString(c.DailyClaimAmount)
	if err != nil {
		return domain.ClaimPolicy{}, fmt.Errorf("invalid claim amount %q: %w", c.DailyClaimAmount, err)
	}
	if !domain.ValidAmount(amount) {
		return domain.ClaimPolicy{}, fmt.Errorf("claim amount must be positive with at most %d decimal places, got %s", domain.AmountScale, amount)
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return domain.ClaimPolicy{}, fmt.Errorf("invalid claim time zone %q: %w", c.TimeZone, err)
	}
	return domain.ClaimPolicy{
		MaxDailyClaims: c.MaxDailyClaims,
		ClaimAmount:    amount,
		Location:       loc,
	}, nil
}

// Default returns the configuration used for local development.
func Default() *AppConfig {
	return &AppConfig{
		ServerPort: "8080",
		HTTP: HTTPConfig{
			RequestTimeout: 15 * time.Second,
			ReadTimeout:    10 * time.Second,
			IdleTimeout:    120 * time.Second,
		},
		DB: db.Config{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "password",
			DBName:   "krakodb",
			SSLMode:  "disable",
		},
		Claim: ClaimConfig{
			MaxDailyClaims:   domain.DefaultMaxDailyClaims,
			DailyClaimAmount: domain.DefaultClaimAmount.String(),
			TimeZone:         "UTC",
			WriteTimeout:     5 * time.Second,
		},
		Log: util.LogOptions{Level: "info", Format: "json"},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by CONFIG_FILE (if any), then environment variables. The result is validated.
func LoadConfig() (*AppConfig, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.HTTP.RequestTimeout <= 0 || cfg.HTTP.ReadTimeout <= 0 || cfg.HTTP.IdleTimeout <= 0 {
		return nil, fmt.Errorf("invalid configuration: http timeouts must be positive")
	}
	if _, err := cfg.Claim.Policy(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.ServerPort, "SERVER_PORT")

	setString(&cfg.DB.Host, "DB_HOST")
	if err := setInt(&cfg.DB.Port, "DB_PORT"); err != nil {
		return err
	}
	setString(&cfg.DB.User, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASSWORD")
	setString(&cfg.DB.DBName, "DB_NAME")
	setString(&cfg.DB.SSLMode, "DB_SSLMODE")

	if err := setInt(&cfg.Claim.MaxDailyClaims, "CLAIM_MAX_DAILY"); err != nil {
		return err
	}
	setString(&cfg.Claim.DailyClaimAmount, "CLAIM_AMOUNT")
	setString(&cfg.Claim.TimeZone, "CLAIM_TIME_ZONE")
	for key, dst := range map[string]*time.Duration{
		"CLAIM_WRITE_TIMEOUT":  &cfg.Claim.WriteTimeout,
		"HTTP_REQUEST_TIMEOUT": &cfg.HTTP.RequestTimeout,
		"HTTP_READ_TIMEOUT":    &cfg.HTTP.ReadTimeout,
		"HTTP_IDLE_TIMEOUT":    &cfg.HTTP.IdleTimeout,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}

	setString(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.File, "LOG_FILE")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
