package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"room-user-service/cmd/api/infrastructure"
	"room-user-service/internal/adapter/cache"
	"room-user-service/internal/adapter/db/postgres"
	ginhandler "room-user-service/internal/adapter/gin/handler"
	"room-user-service/internal/adapter/gin/middleware"
	ginrouter "room-user-service/internal/adapter/gin/router"
	"room-user-service/internal/adapter/mail"
	"room-user-service/internal/adapter/repository/cached"
	"room-user-service/internal/config"
	"room-user-service/internal/usecase/user"
	redisclient "room-user-service/pkg/redis"
	"room-user-service/pkg/security"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Mailer is a user.Mailer whose background deliveries can be awaited.
type Mailer interface {
	user.Mailer
	Wait()
}

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	Mailer      Mailer
	UserUC      *user.Service
	RateLimiter *middleware.RateLimiter
	Router      ginrouter.Deps
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	c.RedisClient = rdb

	mailer, err := newMailer(cfg, l)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	c.Mailer = mailer

	userCache := cache.NewRedisUserCache(rdb.Client, cfg.Redis.TTL(), l)
	repo := cached.NewCachedUserRepository(postgres.NewUserRepoPG(db, l), userCache, l)

	c.UserUC = user.New(user.Deps{
		Repo:   repo,
		Rooms:  postgres.NewRoomRepoPG(db, l),
		Hasher: security.NewBcryptHasher(bcrypt.DefaultCost),
		Tokens: security.NewTokenService(security.TokenConfig{
			Secret:                cfg.Security.SecretKey,
			Issuer:                cfg.Logger.ServiceName,
			AccessTokenTTL:        time.Duration(cfg.Security.AccessTokenExpireMinutes) * time.Minute,
			EmailValidTokenTTL:    time.Duration(cfg.Security.EmailValidTokenHours) * time.Hour,
			PasswordResetTokenTTL: time.Duration(cfg.Security.EmailResetTokenHours) * time.Hour,
		}),
		Mailer: mailer,
	}, user.Settings{
		EmailsEnabled:    cfg.Email.Enabled,
		OpenRegistration: cfg.App.OpenRegistration,
	}, l)

	if cfg.App.FirstSuperuser != "" {
		created, err := c.UserUC.EnsureSuperuser(ctx, cfg.App.FirstSuperuser, cfg.App.FirstSuperuserPassword)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to bootstrap first superuser: %w", err)
		}
		if created {
			l.Info("first superuser created", zap.String("email", cfg.App.FirstSuperuser))
		}
	}

	c.RateLimiter = middleware.NewRateLimiter(rdb.Client, middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		WindowSeconds:     cfg.RateLimit.WindowSeconds,
		Enabled:           cfg.RateLimit.Enabled,
	}, l)

	c.Router = ginrouter.Deps{
		Users:       ginhandler.NewUserHandler(c.UserUC, l),
		Login:       ginhandler.NewLoginHandler(c.UserUC, l),
		Auth:        c.UserUC,
		RateLimiter: c.RateLimiter,
		Checks: map[string]ginrouter.HealthChecker{
			"database": infrastructure.DBPinger{DB: db},
			"redis":    rdb,
		},
	}

	return c, nil
}

func newMailer(cfg *config.Config, l *zap.Logger) (Mailer, error) {
	if !cfg.Email.Enabled {
		l.Info("emails disabled, outbound mail is discarded")
		return mail.NewNopMailer(l), nil
	}

	return mail.NewSMTPMailer(mail.Config{
		Host:            cfg.Email.SMTPHost,
		Port:            cfg.Email.SMTPPort,
		TLS:             cfg.Email.SMTPTLS,
		Username:        cfg.Email.SMTPUser,
		Password:        cfg.Email.SMTPPassword,
		FromEmail:       cfg.Email.FromEmail,
		FromName:        cfg.Email.FromName,
		ProjectName:     cfg.Email.ProjectName,
		ServerHost:      cfg.Email.ServerHost,
		ResetTokenHours: cfg.Security.EmailResetTokenHours,
	}, l)
}

// Close waits for pending emails and closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.Mailer != nil {
		c.Mailer.Wait()
	}

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
