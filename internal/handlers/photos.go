package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/daveharmswebdev/property-manager-sub002/internal/middleware"
	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
	"github.com/daveharmswebdev/property-manager-sub002/internal/service"
)

type uploadURLRequest struct {
	ContentType      string `json:"contentType"`
	FileSizeBytes    int64  `json:"fileSizeBytes"`
	OriginalFileName string `json:"originalFileName"`
}

type uploadURLResponse struct {
	UploadURL           string            `json:"uploadUrl"`
	StorageKey          string            `json:"storageKey"`
	ThumbnailStorageKey string            `json:"thumbnailStorageKey"`
	ExpiresAt           time.Time         `json:"expiresAt"`
	Headers             map[string]string `json:"headers,omitempty"`
}

type confirmUploadRequest struct {
	StorageKey          string `json:"storageKey" binding:"required"`
	ThumbnailStorageKey string `json:"thumbnailStorageKey"`
	ContentType         string `json:"contentType"`
	FileSizeBytes       int64  `json:"fileSizeBytes"`
	OriginalFileName    string `json:"originalFileName"`
}

type reorderRequest struct {
	PhotoIDs []string `json:"photoIds"`
}

type photoResponse struct {
	ID                  string    `json:"id"`
	OwnerKind           string    `json:"ownerKind"`
	OwnerID             string    `json:"ownerId"`
	StorageKey          string    `json:"storageKey"`
	ThumbnailStorageKey *string   `json:"thumbnailStorageKey"`
	OriginalFileName    string    `json:"originalFileName"`
	ContentType         string    `json:"contentType"`
	FileSizeBytes       int64     `json:"fileSizeBytes"`
	DisplayOrder        int       `json:"displayOrder"`
	IsPrimary           bool      `json:"isPrimary"`
	CreatedByUserID     string    `json:"createdByUserId"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
	ViewURL             string    `json:"viewUrl"`
	ThumbnailURL        string    `json:"thumbnailUrl,omitempty"`
}

func toPhotoResponse(view service.PhotoView) photoResponse {
	return photoResponse{
		ID:                  view.ID,
		OwnerKind:           string(view.OwnerKind),
		OwnerID:             view.OwnerID,
		StorageKey:          view.StorageKey,
		ThumbnailStorageKey: view.ThumbnailStorageKey,
		OriginalFileName:    view.OriginalFileName,
		ContentType:         view.ContentType,
		FileSizeBytes:       view.FileSizeBytes,
		DisplayOrder:        view.DisplayOrder,
		IsPrimary:           view.IsPrimary,
		CreatedByUserID:     view.CreatedByUserID,
		CreatedAt:           view.CreatedAt,
		UpdatedAt:           view.UpdatedAt,
		ViewURL:             view.ViewURL,
		ThumbnailURL:        view.ThumbnailURL,
	}
}

// owner resolves the tenant-scoped owner from the caller and the route.
func (h HandlerSet) owner(c *gin.Context, kind models.OwnerKind) (models.Owner, models.Principal, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return models.Owner{}, models.Principal{}, false
	}

	ownerID := c.Param("ownerId")
	if uuid.Validate(ownerID) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_owner_id"})
		return models.Owner{}, models.Principal{}, false
	}

	return models.Owner{TenantID: principal.TenantID, Kind: kind, ID: ownerID}, principal, true
}

func (h HandlerSet) RequestUploadURL(kind models.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, _, ok := h.owner(c, kind)
		if !ok {
			return
		}

		var req uploadURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
			return
		}

		ticket, err := h.photos.RequestUploadURL(c.Request.Context(), service.UploadURLInput{
			Owner:            owner,
			ContentType:      req.ContentType,
			FileSizeBytes:    req.FileSizeBytes,
			OriginalFileName: req.OriginalFileName,
		})
		if err != nil {
			writeError(c, h.log, err)
			return
		}

		c.JSON(http.StatusOK, uploadURLResponse{
			UploadURL:           ticket.URL,
			StorageKey:          ticket.StorageKey,
			ThumbnailStorageKey: ticket.ThumbnailStorageKey,
			ExpiresAt:           ticket.ExpiresAt,
			Headers:             ticket.Headers,
		})
	}
}

func (h HandlerSet) ConfirmUpload(kind models.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, principal, ok := h.owner(c, kind)
		if !ok {
			return
		}

		var req confirmUploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
			return
		}

		photo, err := h.photos.ConfirmUpload(c.Request.Context(), service.ConfirmUploadInput{
			Owner:               owner,
			StorageKey:          req.StorageKey,
			ThumbnailStorageKey: req.ThumbnailStorageKey,
			ContentType:         req.ContentType,
			FileSizeBytes:       req.FileSizeBytes,
			OriginalFileName:    req.OriginalFileName,
			UserID:              principal.UserID,
		})
		if err != nil {
			writeError(c, h.log, err)
			return
		}

		view, err := h.photos.View(c.Request.Context(), photo)
		if err != nil {
			writeError(c, h.log, err)
			return
		}

		c.Header("Location", c.Request.URL.Path+"/"+photo.ID)
		c.JSON(http.StatusCreated, toPhotoResponse(view))
	}
}

func (h HandlerSet) ListPhotos(kind models.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, _, ok := h.owner(c, kind)
		if !ok {
			return
		}

		views, err := h.photos.ListPhotos(c.Request.Context(), owner)
		if err != nil {
			writeError(c, h.log, err)
			return
		}

		items := make([]photoResponse, 0, len(views))
		for _, view := range views {
			items = append(items, toPhotoResponse(view))
		}

		c.JSON(http.StatusOK, gin.H{
			"items": items,
		})
	}
}

func (h HandlerSet) GetPhoto(kind models.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, _, ok := h.owner(c, kind)
		if !ok {
			return
		}

		view, err := h.photos.GetPhoto(c.Request.Context(), owner, c.Param("photoId"))
		if err != nil {
			writeError(c, h.log, err)
			return
		}

		c.JSON(http.StatusOK, toPhotoResponse(view))
	}
}

func (h HandlerSet) SetPrimary(kind models.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, _, ok := h.owner(c, kind)
		if !ok {
			return
		}

		if err := h.photos.SetPrimary(c.Request.Context(), owner, c.Param("photoId")); err != nil {
			writeError(c, h.log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h HandlerSet) Reorder(kind models.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, _, ok := h.owner(c, kind)
		if !ok {
			return
		}

		var req reorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
			return
		}

		if err := h.photos.Reorder(c.Request.Context(), owner, req.PhotoIDs); err != nil {
			writeError(c, h.log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h HandlerSet) DeletePhoto(kind models.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner, _, ok := h.owner(c, kind)
		if !ok {
			return
		}

		if err := h.photos.DeletePhoto(c.Request.Context(), owner, c.Param("photoId")); err != nil {
			writeError(c, h.log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
