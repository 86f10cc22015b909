package app

import (
	httpMW "github.com/tripweaver/tripweaver-backend/internal/http/middleware"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecret),
	}
}
