package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/daveharmswebdev/property-manager-sub002/internal/config"
	"github.com/daveharmswebdev/property-manager-sub002/internal/media/sniffer"
	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
)

var ErrObjectNotFound = errors.New("object not found")

const unknownContentType = "application/octet-stream"

type UploadRequest struct {
	Owner       models.Owner
	ContentType string
	SizeBytes   int64
	FileName    string
}

type UploadTicket struct {
	URL                 string
	StorageKey          string
	ThumbnailStorageKey string
	ExpiresAt           time.Time
	Headers             map[string]string
}

// ObjectInfo is what the store reports about an uploaded object. ContentType is
// the type detected from the object's leading bytes, not the client's claim.
type ObjectInfo struct {
	Key         string
	ContentType string
	SizeBytes   int64
}

type ObjectSummary struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// Backend is the driver-level contract implemented for MinIO and S3.
type Backend interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, map[string]string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Stat(ctx context.Context, key string) (ObjectSummary, error)
	ReadHead(ctx context.Context, key string, n int64) ([]byte, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key, contentType string, body []byte) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectSummary, error)
	EnsureBucket(ctx context.Context) error
}

type Gateway struct {
	backend Backend
	cfg     config.StorageConfig
	now     func() time.Time
}

func NewGateway(backend Backend, cfg config.StorageConfig) *Gateway {
	return &Gateway{backend: backend, cfg: cfg, now: time.Now}
}

// New builds the gateway for the configured driver.
func New(ctx context.Context, cfg config.StorageConfig) (*Gateway, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Driver {
	case "s3":
		backend, err = NewS3Store(ctx, cfg)
	case "minio", "":
		backend, err = NewObjectStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return NewGateway(backend, cfg), nil
}

func (g *Gateway) EnsureBucket(ctx context.Context) error {
	return g.backend.EnsureBucket(ctx)
}

func (g *Gateway) GenerateUploadURL(ctx context.Context, req UploadRequest) (UploadTicket, error) {
	now := g.now()
	key, thumbKey := BuildKeys(req.Owner, req.ContentType, now)

	url, headers, err := g.backend.PresignPut(ctx, key, req.ContentType, g.cfg.UploadURLTTL)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("presign upload %s: %w", key, err)
	}

	return UploadTicket{
		URL:                 url,
		StorageKey:          key,
		ThumbnailStorageKey: thumbKey,
		ExpiresAt:           now.Add(g.cfg.UploadURLTTL).UTC(),
		Headers:             headers,
	}, nil
}

// ConfirmUpload stats the uploaded object and sniffs its real content type.
// The thumbnail key is not checked; thumbnails are rendered after confirmation.
func (g *Gateway) ConfirmUpload(ctx context.Context, key string) (ObjectInfo, error) {
	stat, err := g.backend.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}

	info := ObjectInfo{Key: key, SizeBytes: stat.SizeBytes, ContentType: unknownContentType}

	head, err := g.backend.ReadHead(ctx, key, sniffer.HeadSize)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("read head %s: %w", key, err)
	}
	if detected, err := sniffer.DetectHead(head); err == nil {
		info.ContentType = detected.MIME
	}

	return info, nil
}

func (g *Gateway) ViewURL(ctx context.Context, key string) (string, error) {
	return g.backend.PresignGet(ctx, key, g.cfg.ViewURLTTL)
}

func (g *Gateway) ThumbnailURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return g.backend.PresignGet(ctx, key, g.cfg.ViewURLTTL)
}

// Delete removes the original and, when set, the thumbnail.
func (g *Gateway) Delete(ctx context.Context, key, thumbKey string) error {
	if err := g.backend.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	if thumbKey == "" {
		return nil
	}
	if err := g.backend.Remove(ctx, thumbKey); err != nil {
		return fmt.Errorf("remove %s: %w", thumbKey, err)
	}
	return nil
}

func (g *Gateway) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return g.backend.Open(ctx, key)
}

func (g *Gateway) PutThumbnail(ctx context.Context, key string, body []byte, contentType string) error {
	return g.backend.Put(ctx, key, contentType, body)
}

// ListStale returns objects under prefix last modified before cutoff.
func (g *Gateway) ListStale(ctx context.Context, prefix string, cutoff time.Time) ([]ObjectSummary, error) {
	objects, err := g.backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	stale := objects[:0]
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			stale = append(stale, obj)
		}
	}
	return stale, nil
}

func (g *Gateway) Remove(ctx context.Context, key string) error {
	return g.backend.Remove(ctx, key)
}
