package routes

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"dedupserver/docs"
	deduphandler "dedupserver/internal/api/handlers/dedup"
	"dedupserver/internal/container"
	"dedupserver/server/middleware"
)

// Router управляет маршрутизацией приложения
// Централизует регистрацию всех маршрутов
type Router struct {
	engine       *gin.Engine
	dedupHandler *deduphandler.Handler
	runLimiter   *middleware.RateLimiter
	logger       *slog.Logger
}

// NewRouter создает gin роутер с общими middleware
func NewRouter(c *container.Container) (*Router, error) {
	dedupHandler, err := c.GetDedupHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get dedup handler: %w", err)
	}

	engine := gin.New()
	engine.Use(
		middleware.GinRequestIDMiddleware(),
		middleware.GinRecoveryMiddleware(c.Logger),
		middleware.GinLoggerMiddleware(c.Logger),
		middleware.GinCORSMiddleware(),
		middleware.GinGzipMiddleware(),
	)

	return &Router{
		engine:       engine,
		dedupHandler: dedupHandler,
		runLimiter:   middleware.NewRateLimiter(c.Config.RateLimitPerSec, c.Config.RateLimitBurst),
		logger:       c.Logger,
	}, nil
}

// Engine возвращает gin engine для http.Server
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// RegisterAllRoutes регистрирует все маршруты приложения
func (r *Router) RegisterAllRoutes() {
	r.engine.GET("/health", r.dedupHandler.HandleHealth)
	r.registerSwaggerRoutes()

	api := r.engine.Group("/api/v1")
	r.registerSessionRoutes(api)
	r.registerRunRoutes(api)
	r.registerRuleRoutes(api)

	r.logger.Info("Routes registered", "count", len(r.engine.Routes()))
}

func (r *Router) registerSessionRoutes(api *gin.RouterGroup) {
	sessions := api.Group("/sessions")
	sessions.POST("", r.dedupHandler.HandleCreateSession)
	sessions.GET("/:id", r.dedupHandler.HandleGetSession)
	sessions.DELETE("/:id", r.dedupHandler.HandleDeleteSession)
	sessions.POST("/:id/compare", r.dedupHandler.HandleCompare)

	// запуски ограничены по частоте для каждого клиента
	runs := sessions.Group("/:id/runs", r.runLimiter.Middleware())
	runs.POST("/cluster", r.dedupHandler.HandleStartCluster)
	runs.POST("/audit", r.dedupHandler.HandleStartAudit)
	runs.POST("/learn", r.dedupHandler.HandleStartLearn)
}

func (r *Router) registerRunRoutes(api *gin.RouterGroup) {
	api.GET("/runs/:run_id", r.dedupHandler.HandleGetRun)
	api.GET("/runs/:run_id/events", r.dedupHandler.HandleRunEvents)
}

func (r *Router) registerRuleRoutes(api *gin.RouterGroup) {
	api.GET("/rules", r.dedupHandler.HandleListRules)
	api.POST("/rules", r.dedupHandler.HandleAppendRule)
}

func (r *Router) registerSwaggerRoutes() {
	docs.SwaggerInfo.BasePath = "/"
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
}
