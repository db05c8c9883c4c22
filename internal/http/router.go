package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/dae-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dae-backend/internal/http/middleware"
	"github.com/yungbote/dae-backend/internal/observability"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthHandler        *httpH.AuthHandler
	AuthMiddleware     *httpMW.AuthMiddleware
	CourseHandler      *httpH.CourseHandler
	CredentialHandler  *httpH.CredentialHandler
	TransactionHandler *httpH.TransactionHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api/v1")
	{
		// Health
		if cfg.HealthHandler != nil {
			api.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		}

		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/nonce", cfg.AuthHandler.Nonce)
			api.POST("/auth/verify", cfg.AuthHandler.Verify)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.GET("/auth/session", cfg.AuthHandler.Session)
			protected.POST("/auth/logout", cfg.AuthHandler.Logout)
		}

		// Courses
		if cfg.CourseHandler != nil {
			protected.GET("/courses", cfg.CourseHandler.List)
			protected.GET("/courses/mine", cfg.CourseHandler.ListMine)
			protected.POST("/courses/reconcile", cfg.CourseHandler.Reconcile)
			protected.GET("/courses/:chainId/:address", cfg.CourseHandler.Get)
			protected.PATCH("/courses/:chainId/:address", cfg.CourseHandler.Update)
			protected.GET("/courses/:chainId/:address/students", cfg.CourseHandler.Students)
			protected.GET("/courses/:chainId/:address/teachers", cfg.CourseHandler.Teachers)
			protected.GET("/courses/:chainId/:address/karma/:user", cfg.CourseHandler.Karma)
		}

		// Credentials
		if cfg.CredentialHandler != nil {
			protected.GET("/courses/:chainId/:address/credentials", cfg.CredentialHandler.List)
			protected.POST("/courses/:chainId/:address/credentials", cfg.CredentialHandler.Create)
			protected.POST("/credentials/transfer/reconcile", cfg.CredentialHandler.ReconcileTransfer)
			protected.POST("/credentials/burn/reconcile", cfg.CredentialHandler.ReconcileBurn)
			protected.DELETE("/credentials/burn", cfg.CredentialHandler.DeleteBurned)
		}

		// Pending transactions
		if cfg.TransactionHandler != nil {
			protected.POST("/transactions/pending", cfg.TransactionHandler.Record)
			protected.GET("/transactions/pending", cfg.TransactionHandler.List)
			protected.DELETE("/transactions/pending/:hash", cfg.TransactionHandler.Void)
			protected.POST("/transactions/pending/resync", cfg.TransactionHandler.Resync)
		}
	}

	return r
}
