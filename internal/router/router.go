package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "gstaudit/internal/docs" // registers the OpenAPI document
	"gstaudit/internal/handler"
	"gstaudit/internal/middleware"
	"gstaudit/internal/service"
)

// Options holds router settings.
type Options struct {
	// AuthDisabled leaves /api/v1 open. Local development only.
	AuthDisabled   bool
	AllowedOrigins []string
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	log *zap.Logger,
	opts Options,
	authSvc service.AuthService,
	validationH *handler.ValidationHandler,
	referenceH *handler.ReferenceHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	if !opts.AuthDisabled {
		v1.Use(middleware.AuthMiddleware(authSvc))
	}

	validations := v1.Group("/validations")
	validations.POST("", validationH.Validate)
	validations.POST("/batch", validationH.ValidateBatch)
	validations.GET("/:run_id", validationH.Get)
	validations.GET("/:run_id/export", validationH.ExportRun)

	reports := v1.Group("/reports")
	reports.GET("", validationH.ListByInvoice)
	reports.GET("/export", validationH.ExportByInvoice)

	reference := v1.Group("/reference")
	reference.GET("", referenceH.Stats)
	reference.POST("/reload", referenceH.Reload)
	reference.GET("/rates/:code", referenceH.LookupRate)

	return r
}
