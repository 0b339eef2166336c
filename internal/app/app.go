package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/branchauth/internal/config"
	httpx "github.com/you/branchauth/internal/http"
	"github.com/you/branchauth/internal/http/handlers"
	"github.com/you/branchauth/internal/http/middleware"
)

func Run(cfg *config.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	container, err := NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	if err := container.RedisClient.Ping(context.Background()).Err(); err != nil {
		return err
	}

	authH := handlers.NewAuthHandlers(container.AuthSvc, container.VerifySvc, container.ResetSvc)
	sessMW := middleware.NewSessionMW(container.AuthSvc)

	r := httpx.BuildRouter(authH, sessMW)

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, r)
}
