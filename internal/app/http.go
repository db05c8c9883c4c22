package app

import (
	"gorm.io/gorm"

	httpserver "github.com/yungbote/dae-backend/internal/http"
	httpH "github.com/yungbote/dae-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dae-backend/internal/http/middleware"
	"github.com/yungbote/dae-backend/internal/observability"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Auth        *httpH.AuthHandler
	Course      *httpH.CourseHandler
	Credential  *httpH.CredentialHandler
	Transaction *httpH.TransactionHandler
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth, cfg.SessionCookieName),
	}
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db, services.AggregateHooks),
		Auth: httpH.NewAuthHandler(services.Auth, httpH.SessionCookieConfig{
			Name:   cfg.SessionCookieName,
			Domain: cfg.SessionCookieDomain,
			Secure: cfg.SessionCookieSecure,
		}),
		Course:      httpH.NewCourseHandler(services.Course, services.CourseRec),
		Credential:  httpH.NewCredentialHandler(services.Credential, services.TransferRec, services.BurnRec),
		Transaction: httpH.NewTransactionHandler(services.Pending, services.Resync),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *httpserver.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpserver.NewServer(httpserver.RouterConfig{
		Log:                log,
		ServiceName:        serviceName,
		CORSOrigins:        cfg.CORSOrigins,
		Metrics:            metrics,
		AuthHandler:        handlers.Auth,
		AuthMiddleware:     middleware.Auth,
		CourseHandler:      handlers.Course,
		CredentialHandler:  handlers.Credential,
		TransactionHandler: handlers.Transaction,
		HealthHandler:      handlers.Health,
	})
}
