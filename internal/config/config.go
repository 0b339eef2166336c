package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port          int    `yaml:"port"`
	GinMode       string `yaml:"gin_mode"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LockoutConfig struct {
	Threshold int    `yaml:"threshold"`
	Duration  string `yaml:"duration"`
}

type TokensConfig struct {
	SessionTTL        string `yaml:"session_ttl"`
	VerificationTTL   string `yaml:"verification_ttl"`
	ResetTTL          string `yaml:"reset_ttl"`
	MinPasswordLength int    `yaml:"min_password_length"`
	BcryptCost        int    `yaml:"bcrypt_cost"`
}

type RateLimitRule struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

type RateLimitsConfig struct {
	Login        RateLimitRule `yaml:"login"`
	Verification RateLimitRule `yaml:"verification"`
	Reset        RateLimitRule `yaml:"reset"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type AnomalyConfig struct {
	Window      string  `yaml:"window"`
	MaxAttempts int64   `yaml:"max_attempts"`
	MaxAmount   float64 `yaml:"max_amount"`
}

type ConfigFile struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Lockout    LockoutConfig    `yaml:"lockout"`
	Tokens     TokensConfig     `yaml:"tokens"`
	RateLimits RateLimitsConfig `yaml:"rate_limits"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	Anomaly    AnomalyConfig    `yaml:"anomaly"`
}

// Limit is a parsed rate limit rule
type Limit struct {
	Count  int
	Window time.Duration
}

type Config struct {
	Port              string
	GinMode           string
	PublicBaseURL     string
	DSN               string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	LockoutThreshold  int
	LockoutDuration   time.Duration
	SessionTTL        time.Duration
	VerificationTTL   time.Duration
	ResetTTL          time.Duration
	MinPasswordLength int
	BcryptCost        int
	LoginLimit        Limit
	VerificationLimit Limit
	ResetLimit        Limit
	TwilioSID         string
	TwilioToken       string
	TwilioFrom        string
	AnomalyWindow     time.Duration
	AnomalyMaxCount   int64
	AnomalyMaxAmount  float64
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads the yaml config file, with env overrides for secrets
func Load() (*Config, error) {
	return LoadFrom(env("CONFIG_PATH", "config/config.yml"))
}

func LoadFrom(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	lockDur, err := time.ParseDuration(configFile.Lockout.Duration)
	if err != nil {
		return nil, fmt.Errorf("invalid lockout duration: %w", err)
	}

	sessTTL, err := time.ParseDuration(configFile.Tokens.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid session TTL: %w", err)
	}

	verifyTTL, err := time.ParseDuration(configFile.Tokens.VerificationTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid verification TTL: %w", err)
	}

	resetTTL, err := time.ParseDuration(configFile.Tokens.ResetTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid reset TTL: %w", err)
	}

	anomalyWnd, err := time.ParseDuration(configFile.Anomaly.Window)
	if err != nil {
		return nil, fmt.Errorf("invalid anomaly window: %w", err)
	}

	loginLimit, err := parseLimit(configFile.RateLimits.Login)
	if err != nil {
		return nil, fmt.Errorf("invalid login rate limit: %w", err)
	}

	verifyLimit, err := parseLimit(configFile.RateLimits.Verification)
	if err != nil {
		return nil, fmt.Errorf("invalid verification rate limit: %w", err)
	}

	resetLimit, err := parseLimit(configFile.RateLimits.Reset)
	if err != nil {
		return nil, fmt.Errorf("invalid reset rate limit: %w", err)
	}

	return &Config{
		Port:              fmt.Sprintf("%d", configFile.App.Port),
		GinMode:           configFile.App.GinMode,
		PublicBaseURL:     env("PUBLIC_BASE_URL", configFile.App.PublicBaseURL),
		DSN:               env("DATABASE_DSN", configFile.Database.DSN),
		RedisAddr:         env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword:     env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:           configFile.Redis.DB,
		LockoutThreshold:  configFile.Lockout.Threshold,
		LockoutDuration:   lockDur,
		SessionTTL:        sessTTL,
		VerificationTTL:   verifyTTL,
		ResetTTL:          resetTTL,
		MinPasswordLength: configFile.Tokens.MinPasswordLength,
		BcryptCost:        configFile.Tokens.BcryptCost,
		LoginLimit:        loginLimit,
		VerificationLimit: verifyLimit,
		ResetLimit:        resetLimit,
		TwilioSID:         env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken:       env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:        env("TWILIO_FROM_NUMBER", configFile.Twilio.FromNumber),
		AnomalyWindow:     anomalyWnd,
		AnomalyMaxCount:   configFile.Anomaly.MaxAttempts,
		AnomalyMaxAmount:  configFile.Anomaly.MaxAmount,
	}, nil
}

func parseLimit(rule RateLimitRule) (Limit, error) {
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return Limit{}, err
	}
	return Limit{Count: rule.Limit, Window: window}, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
