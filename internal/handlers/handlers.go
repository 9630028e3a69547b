package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/daveharmswebdev/property-manager-sub002/internal/config"
	"github.com/daveharmswebdev/property-manager-sub002/internal/middleware"
	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
	"github.com/daveharmswebdev/property-manager-sub002/internal/service"
)

type HandlerSet struct {
	log    zerolog.Logger
	cfg    *config.AppConfig
	db     *pgxpool.Pool
	cache  *redis.Client
	photos *service.PhotoService
}

// NewHandlerSet wires the HTTP surface. db and cache may be nil; health
// reports them as disabled.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, db *pgxpool.Pool, cache *redis.Client, photos *service.PhotoService) HandlerSet {
	return HandlerSet{
		log:    log,
		cfg:    cfg,
		db:     db,
		cache:  cache,
		photos: photos,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(
		middleware.Auth(h.cfg.Security.JWTAccessSecret),
		middleware.RequireRoles(models.UserRoleOwner, models.UserRoleContributor),
	)

	for _, kind := range models.OwnerKinds {
		h.registerPhotos(v1.Group("/"+kind.KeySegment()+"/:ownerId/photos"), kind)
	}
}

func (h HandlerSet) registerPhotos(group *gin.RouterGroup, kind models.OwnerKind) {
	group.POST("/upload-url", h.RequestUploadURL(kind))
	group.POST("", h.ConfirmUpload(kind))
	group.GET("", h.ListPhotos(kind))
	group.GET("/:photoId", h.GetPhoto(kind))
	group.PUT("/reorder", h.Reorder(kind))
	group.PUT("/:photoId/primary", h.SetPrimary(kind))
	group.DELETE("/:photoId", h.DeletePhoto(kind))
}
