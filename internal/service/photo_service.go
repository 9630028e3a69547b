package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/daveharmswebdev/property-manager-sub002/internal/config"
	"github.com/daveharmswebdev/property-manager-sub002/internal/ids"
	"github.com/daveharmswebdev/property-manager-sub002/internal/media/sniffer"
	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
	"github.com/daveharmswebdev/property-manager-sub002/internal/storage"
)

type PhotoRepository interface {
	ListByOwner(ctx context.Context, owner models.Owner) ([]models.Photo, error)
	GetByID(ctx context.Context, owner models.Owner, id string) (models.Photo, error)
	CountByOwner(ctx context.Context, owner models.Owner) (int, error)
	Create(ctx context.Context, photo models.Photo) (models.Photo, error)
	DeleteAndPromote(ctx context.Context, owner models.Owner, id string) (string, error)
	SetPrimary(ctx context.Context, owner models.Owner, id string) error
	Reorder(ctx context.Context, owner models.Owner, ids []string) error
}

type OwnerDirectory interface {
	Exists(ctx context.Context, owner models.Owner) (bool, error)
}

type BlobGateway interface {
	GenerateUploadURL(ctx context.Context, req storage.UploadRequest) (storage.UploadTicket, error)
	ConfirmUpload(ctx context.Context, key string) (storage.ObjectInfo, error)
	ViewURL(ctx context.Context, key string) (string, error)
	ThumbnailURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key, thumbKey string) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

type TaskQueue interface {
	EnqueueThumbnail(ctx context.Context, photo models.Photo) error
}

type UploadURLInput struct {
	Owner            models.Owner
	ContentType      string
	FileSizeBytes    int64
	OriginalFileName string
}

type ConfirmUploadInput struct {
	Owner               models.Owner
	StorageKey          string
	ThumbnailStorageKey string
	ContentType         string
	FileSizeBytes       int64
	OriginalFileName    string
	UserID              string
}

type PhotoView struct {
	models.Photo
	ViewURL      string
	ThumbnailURL string
}

// PhotoService owns the photo lifecycle for every owner kind: upload issuance,
// confirmation, deletion with primary promotion, primary designation and ordering.
type PhotoService struct {
	photos PhotoRepository
	owners OwnerDirectory
	blobs  BlobGateway
	locker Locker
	tasks  TaskQueue
	cfg    config.PhotoConfig
	log    zerolog.Logger
}

func NewPhotoService(photos PhotoRepository, owners OwnerDirectory, blobs BlobGateway, locker Locker, tasks TaskQueue, cfg config.PhotoConfig, log zerolog.Logger) *PhotoService {
	if cfg.ListConcurrency <= 0 {
		cfg.ListConcurrency = 8
	}
	if cfg.MaxFileNameLength <= 0 {
		cfg.MaxFileNameLength = 255
	}
	return &PhotoService{
		photos: photos,
		owners: owners,
		blobs:  blobs,
		locker: locker,
		tasks:  tasks,
		cfg:    cfg,
		log:    log,
	}
}

func (s *PhotoService) RequestUploadURL(ctx context.Context, input UploadURLInput) (storage.UploadTicket, error) {
	if err := s.ensureOwner(ctx, input.Owner); err != nil {
		return storage.UploadTicket{}, err
	}

	contentType := sniffer.NormalizeMIME(input.ContentType)
	if err := s.validateContent(contentType, input.FileSizeBytes); err != nil {
		return storage.UploadTicket{}, err
	}
	if err := s.validateFileName(input.OriginalFileName); err != nil {
		return storage.UploadTicket{}, err
	}

	ticket, err := s.blobs.GenerateUploadURL(ctx, storage.UploadRequest{
		Owner:       input.Owner,
		ContentType: contentType,
		SizeBytes:   input.FileSizeBytes,
		FileName:    input.OriginalFileName,
	})
	if err != nil {
		return storage.UploadTicket{}, fmt.Errorf("generate upload url: %w", err)
	}
	return ticket, nil
}

// ConfirmUpload records an uploaded object as a photo. The store's reported
// content type and size replace the client's values and are validated again.
func (s *PhotoService) ConfirmUpload(ctx context.Context, input ConfirmUploadInput) (models.Photo, error) {
	owner := input.Owner
	if err := s.ensureOwner(ctx, owner); err != nil {
		return models.Photo{}, err
	}
	if err := checkKey(owner, input.StorageKey); err != nil {
		return models.Photo{}, err
	}
	if storage.IsThumbnailKey(input.StorageKey) {
		return models.Photo{}, invalidArgument("storage key %q names a thumbnail", input.StorageKey)
	}
	if input.ThumbnailStorageKey != "" {
		if err := checkKey(owner, input.ThumbnailStorageKey); err != nil {
			return models.Photo{}, err
		}
		if input.ThumbnailStorageKey != storage.ThumbnailKeyFor(input.StorageKey) {
			return models.Photo{}, invalidArgument("thumbnail key does not belong to storage key %q", input.StorageKey)
		}
	}
	if err := s.validateFileName(input.OriginalFileName); err != nil {
		return models.Photo{}, err
	}

	release, err := s.lock(ctx, owner)
	if err != nil {
		return models.Photo{}, err
	}
	defer release()

	info, err := s.blobs.ConfirmUpload(ctx, input.StorageKey)
	if err != nil {
		return models.Photo{}, translate(fmt.Errorf("confirm upload: %w", err))
	}

	if err := s.validateContent(info.ContentType, info.SizeBytes); err != nil {
		if delErr := s.blobs.Delete(ctx, input.StorageKey, ""); delErr != nil {
			s.log.Warn().Err(delErr).Str("storage_key", input.StorageKey).Msg("delete rejected upload failed")
		}
		return models.Photo{}, err
	}

	count, err := s.photos.CountByOwner(ctx, owner)
	if err != nil {
		return models.Photo{}, translate(fmt.Errorf("count photos: %w", err))
	}

	photo := models.Photo{
		ID:               ids.New(),
		TenantID:         owner.TenantID,
		OwnerKind:        owner.Kind,
		OwnerID:          owner.ID,
		StorageKey:       input.StorageKey,
		OriginalFileName: strings.TrimSpace(input.OriginalFileName),
		ContentType:      info.ContentType,
		FileSizeBytes:    info.SizeBytes,
		DisplayOrder:     count,
		IsPrimary:        count == 0,
		CreatedByUserID:  input.UserID,
	}
	if input.ThumbnailStorageKey != "" {
		thumb := input.ThumbnailStorageKey
		photo.ThumbnailStorageKey = &thumb
	}

	photo, err = s.photos.Create(ctx, photo)
	if err != nil {
		return models.Photo{}, translate(fmt.Errorf("create photo: %w", err))
	}

	s.log.Info().
		Str("tenant_id", owner.TenantID).
		Str("owner_kind", string(owner.Kind)).
		Str("owner_id", owner.ID).
		Str("photo_id", photo.ID).
		Int("display_order", photo.DisplayOrder).
		Bool("is_primary", photo.IsPrimary).
		Msg("photo confirmed")

	if photo.ThumbnailStorageKey != nil && s.tasks != nil {
		if err := s.tasks.EnqueueThumbnail(ctx, photo); err != nil {
			s.log.Warn().Err(err).Str("photo_id", photo.ID).Msg("enqueue thumbnail failed")
		}
	}

	return photo, nil
}

// DeletePhoto removes the blobs first and then the record. A blob failure
// leaves the record untouched.
func (s *PhotoService) DeletePhoto(ctx context.Context, owner models.Owner, photoID string) error {
	if err := s.ensureOwner(ctx, owner); err != nil {
		return err
	}

	release, err := s.lock(ctx, owner)
	if err != nil {
		return err
	}
	defer release()

	photo, err := s.photos.GetByID(ctx, owner, photoID)
	if err != nil {
		return translate(fmt.Errorf("get photo %s: %w", photoID, err))
	}

	if err := s.blobs.Delete(ctx, photo.StorageKey, photo.ThumbnailKey()); err != nil {
		return fmt.Errorf("delete blobs for photo %s: %w", photoID, err)
	}

	promoted, err := s.photos.DeleteAndPromote(ctx, owner, photoID)
	if err != nil {
		return translate(fmt.Errorf("delete photo %s: %w", photoID, err))
	}

	event := s.log.Info().
		Str("tenant_id", owner.TenantID).
		Str("owner_kind", string(owner.Kind)).
		Str("owner_id", owner.ID).
		Str("photo_id", photoID)
	if promoted != "" {
		event = event.Str("promoted_id", promoted)
	}
	event.Msg("photo deleted")

	return nil
}

func (s *PhotoService) SetPrimary(ctx context.Context, owner models.Owner, photoID string) error {
	if err := s.ensureOwner(ctx, owner); err != nil {
		return err
	}

	release, err := s.lock(ctx, owner)
	if err != nil {
		return err
	}
	defer release()

	photo, err := s.photos.GetByID(ctx, owner, photoID)
	if err != nil {
		return translate(fmt.Errorf("get photo %s: %w", photoID, err))
	}
	if photo.IsPrimary {
		return nil
	}

	if err := s.photos.SetPrimary(ctx, owner, photoID); err != nil {
		return translate(fmt.Errorf("set primary %s: %w", photoID, err))
	}

	s.log.Info().
		Str("tenant_id", owner.TenantID).
		Str("owner_kind", string(owner.Kind)).
		Str("owner_id", owner.ID).
		Str("photo_id", photoID).
		Msg("primary photo changed")
	return nil
}

// Reorder sets display order to each id's index. photoIDs must be a
// permutation of the owner's photos.
func (s *PhotoService) Reorder(ctx context.Context, owner models.Owner, photoIDs []string) error {
	if err := s.ensureOwner(ctx, owner); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(photoIDs))
	for _, id := range photoIDs {
		if _, dup := seen[id]; dup {
			return invalidArgument("photo %s listed more than once", id)
		}
		seen[id] = struct{}{}
	}

	release, err := s.lock(ctx, owner)
	if err != nil {
		return err
	}
	defer release()

	current, err := s.photos.ListByOwner(ctx, owner)
	if err != nil {
		return translate(fmt.Errorf("list photos: %w", err))
	}
	if len(current) == 0 && len(photoIDs) == 0 {
		return nil
	}

	owned := make(map[string]struct{}, len(current))
	for _, photo := range current {
		owned[photo.ID] = struct{}{}
	}
	for _, id := range photoIDs {
		if _, ok := owned[id]; !ok {
			return fmt.Errorf("%w: photo %s", ErrNotFound, id)
		}
	}
	if len(photoIDs) != len(current) {
		return invalidArgument("expected %d photo ids, got %d", len(current), len(photoIDs))
	}

	if err := s.photos.Reorder(ctx, owner, photoIDs); err != nil {
		return translate(fmt.Errorf("reorder photos: %w", err))
	}

	s.log.Info().
		Str("tenant_id", owner.TenantID).
		Str("owner_kind", string(owner.Kind)).
		Str("owner_id", owner.ID).
		Int("count", len(photoIDs)).
		Msg("photos reordered")
	return nil
}

func (s *PhotoService) ListPhotos(ctx context.Context, owner models.Owner) ([]PhotoView, error) {
	if err := s.ensureOwner(ctx, owner); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListByOwner(ctx, owner)
	if err != nil {
		return nil, translate(fmt.Errorf("list photos: %w", err))
	}
	models.SortPhotos(photos)

	views := make([]PhotoView, len(photos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ListConcurrency)
	for i, photo := range photos {
		g.Go(func() error {
			view, err := s.View(gctx, photo)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *PhotoService) GetPhoto(ctx context.Context, owner models.Owner, photoID string) (PhotoView, error) {
	if err := s.ensureOwner(ctx, owner); err != nil {
		return PhotoView{}, err
	}

	photo, err := s.photos.GetByID(ctx, owner, photoID)
	if err != nil {
		return PhotoView{}, translate(fmt.Errorf("get photo %s: %w", photoID, err))
	}
	return s.View(ctx, photo)
}

// View resolves the time-limited URLs for photo.
func (s *PhotoService) View(ctx context.Context, photo models.Photo) (PhotoView, error) {
	viewURL, err := s.blobs.ViewURL(ctx, photo.StorageKey)
	if err != nil {
		return PhotoView{}, fmt.Errorf("view url for photo %s: %w", photo.ID, err)
	}
	thumbURL, err := s.blobs.ThumbnailURL(ctx, photo.ThumbnailKey())
	if err != nil {
		return PhotoView{}, fmt.Errorf("thumbnail url for photo %s: %w", photo.ID, err)
	}
	return PhotoView{Photo: photo, ViewURL: viewURL, ThumbnailURL: thumbURL}, nil
}

func (s *PhotoService) ensureOwner(ctx context.Context, owner models.Owner) error {
	if !owner.Kind.Valid() {
		return invalidArgument("unknown owner kind %q", owner.Kind)
	}
	exists, err := s.owners.Exists(ctx, owner)
	if err != nil {
		return fmt.Errorf("lookup %s %s: %w", owner.Kind, owner.ID, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s %s", ErrNotFound, owner.Kind, owner.ID)
	}
	return nil
}

func (s *PhotoService) lock(ctx context.Context, owner models.Owner) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("photos:lock:%s:%s:%s", owner.TenantID, owner.Kind, owner.ID)
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, translate(err)
	}
	return release, nil
}

func (s *PhotoService) validateContent(contentType string, size int64) error {
	if !s.cfg.Allows(contentType) {
		return invalidArgument("content type %q is not allowed", contentType)
	}
	if size <= 0 || size > s.cfg.MaxUploadBytes {
		return invalidArgument("file size %d must be between 1 and %d bytes", size, s.cfg.MaxUploadBytes)
	}
	return nil
}

func (s *PhotoService) validateFileName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidArgument("original file name is required")
	}
	if utf8.RuneCountInString(name) > s.cfg.MaxFileNameLength {
		return invalidArgument("original file name exceeds %d characters", s.cfg.MaxFileNameLength)
	}
	return nil
}

// checkKey verifies key was issued for owner: the first segment must be the
// owner's tenant and the second the owner kind's segment.
func checkKey(owner models.Owner, key string) error {
	parts, err := storage.ParseKey(key)
	if err != nil {
		return translate(fmt.Errorf("storage key %q: %w", key, err))
	}
	if parts.TenantID != owner.TenantID {
		return fmt.Errorf("%w: storage key belongs to another tenant", ErrUnauthorized)
	}
	if parts.Segment != owner.Kind.KeySegment() {
		return invalidArgument("storage key segment %q does not match %s", parts.Segment, owner.Kind)
	}
	return nil
}
