package app

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/branchauth/domain"
	"github.com/you/branchauth/internal/config"
	"github.com/you/branchauth/internal/infrastructure/auth"
	"github.com/you/branchauth/internal/infrastructure/database"
	"github.com/you/branchauth/internal/infrastructure/notifications"
	"github.com/you/branchauth/internal/infrastructure/ratelimit"
	"github.com/you/branchauth/internal/infrastructure/repositories"
	"github.com/you/branchauth/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client

	// Repositories
	Credentials domain.CredentialStore
	ResetTokens domain.ResetTokenRepository
	Sessions    domain.SessionRepository
	AuditRepo   domain.AuditRepository

	// Services
	PasswordSvc domain.PasswordService
	TokenGen    domain.TokenGenerator
	Notifier    domain.Notifier
	Limiter     domain.RateLimiter
	Audit       domain.AuditTrail
	Issuer      domain.SessionTokenIssuer
	AuthSvc     domain.AuthService
	VerifySvc   domain.VerificationService
	ResetSvc    domain.ResetService
}

// NewContainer creates and initializes all dependencies
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	container := &Container{Config: cfg, Logger: logger}

	if err := container.initDatabase(); err != nil {
		return nil, err
	}
	container.initRedis()
	container.initRepositories()
	container.initServices()

	return container, nil
}

func (c *Container) initDatabase() error {
	db, err := database.Open(c.Config.DSN)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	c.DB = db
	return nil
}

func (c *Container) initRedis() {
	c.RedisClient = database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB).Client
}

func (c *Container) initRepositories() {
	c.Credentials = repositories.NewPrincipalRepository(c.DB)
	c.ResetTokens = repositories.NewResetTokenRepository(c.DB)
	c.Sessions = repositories.NewSessionRepository(c.RedisClient)
	c.AuditRepo = repositories.NewAuditRepository(c.DB)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.PasswordSvc = auth.NewPasswordService(cfg.BcryptCost)
	c.TokenGen = auth.NewTokenGenerator()
	c.Notifier = notifications.NewTwilioNotifier(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Logger)
	c.Limiter = ratelimit.NewRedisLimiter(c.RedisClient, map[string]config.Limit{
		"login":        cfg.LoginLimit,
		"verification": cfg.VerificationLimit,
		"reset":        cfg.ResetLimit,
	}, c.Logger)

	c.Audit = services.NewAuditService(c.AuditRepo, c.Logger)
	c.Issuer = services.NewSessionService(c.Sessions, c.Credentials, c.TokenGen, cfg.SessionTTL, c.Logger)

	policy := services.NewLockoutPolicy(cfg.LockoutThreshold, cfg.LockoutDuration)
	anomaly := domain.AnomalyCheck{
		Window:      cfg.AnomalyWindow,
		MaxAttempts: cfg.AnomalyMaxCount,
		MaxAmount:   cfg.AnomalyMaxAmount,
	}
	c.AuthSvc = services.NewAuthService(c.Credentials, c.Issuer, c.PasswordSvc, c.Audit, c.Limiter, policy, anomaly, c.Logger)
	c.VerifySvc = services.NewVerificationService(c.Credentials, c.TokenGen, c.Notifier, c.Audit, c.Limiter,
		cfg.VerificationTTL, cfg.PublicBaseURL, c.Logger)
	c.ResetSvc = services.NewResetService(c.Credentials, c.ResetTokens, c.PasswordSvc, c.TokenGen, c.Notifier,
		c.Audit, c.Limiter, cfg.ResetTTL, cfg.MinPasswordLength, cfg.PublicBaseURL, c.Logger)
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
