package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/fieldline/backend/internal/config"
	"github.com/fieldline/backend/internal/db"
	"github.com/fieldline/backend/internal/dispatch"
	"github.com/fieldline/backend/internal/http/handlers"
	"github.com/fieldline/backend/internal/http/middleware"
	"github.com/fieldline/backend/internal/insights"

	_ "github.com/fieldline/backend/docs"
)

func Router(cfg config.Config, store *db.Store, boards *dispatch.Registry, assistant insights.Assistant, loc *time.Location, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tenant(cfg.DefaultTenant))
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id", "X-Tenant-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Boards:    boards,
		Assistant: assistant,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
		Location:  loc,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/dispatch/board", h.Board)
		api.POST("/dispatch/reload", h.Reload)
		api.POST("/dispatch/suggestions/refresh", h.RefreshSuggestions)
		api.POST("/dispatch/select", h.SelectTechnician)
		api.GET("/technicians", h.TechniciansList)
		api.GET("/technicians/:id/route", h.Route)
		api.POST("/technicians/:id/route", h.OptimizeRoute)
		api.POST("/appointments/:id/assign", h.Assign)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/seed", h.Seed)
		admin.POST("/assistant/chat", h.AssistantChat)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
