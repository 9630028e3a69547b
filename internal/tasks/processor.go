package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/daveharmswebdev/property-manager-sub002/internal/media/thumbnail"
	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
	"github.com/daveharmswebdev/property-manager-sub002/internal/queue"
	"github.com/daveharmswebdev/property-manager-sub002/internal/storage"
)

// BlobStore is the subset of the storage gateway the worker needs.
type BlobStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	PutThumbnail(ctx context.Context, key string, body []byte, contentType string) error
	ListStale(ctx context.Context, prefix string, cutoff time.Time) ([]storage.ObjectSummary, error)
	Remove(ctx context.Context, key string) error
}

// KeyIndex reports which storage keys are still referenced by photo records.
type KeyIndex interface {
	ReferencedKeys(ctx context.Context, kind models.OwnerKind, keys []string) (map[string]bool, error)
}

type Options struct {
	ThumbnailMaxDimension int
	OrphanGrace           time.Duration
}

type Processor struct {
	blobs  BlobStore
	index  KeyIndex
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

type TaskPayload struct {
	Type         string `json:"type"`
	PhotoID      string `json:"photoId"`
	TenantID     string `json:"tenantId"`
	OwnerKind    string `json:"ownerKind"`
	OwnerID      string `json:"ownerId"`
	StorageKey   string `json:"storageKey"`
	ThumbnailKey string `json:"thumbnailKey"`
}

func NewProcessor(blobs BlobStore, index KeyIndex, opts Options, logger zerolog.Logger) *Processor {
	return &Processor{
		blobs:  blobs,
		index:  index,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case queue.TaskThumbnail:
		return p.handleThumbnail(ctx, payload)
	case queue.TaskSweep:
		return p.handleSweep(ctx)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

func (p *Processor) handleThumbnail(ctx context.Context, payload TaskPayload) error {
	if payload.StorageKey == "" || payload.ThumbnailKey == "" {
		p.logger.Warn().Str("photo_id", payload.PhotoID).Msg("thumbnail task without keys")
		return nil
	}

	src, err := p.blobs.Open(ctx, payload.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			// Photo deleted before the task ran.
			p.logger.Info().Str("photo_id", payload.PhotoID).Msg("original gone, skipping thumbnail")
			return nil
		}
		return fmt.Errorf("open %s: %w", payload.StorageKey, err)
	}
	defer src.Close()

	body, err := thumbnail.Render(src, p.opts.ThumbnailMaxDimension)
	if err != nil {
		if errors.Is(err, thumbnail.ErrUnsupported) {
			p.logger.Warn().Str("photo_id", payload.PhotoID).Str("storage_key", payload.StorageKey).Msg("no decoder for photo, thumbnail skipped")
			return nil
		}
		return fmt.Errorf("render thumbnail for %s: %w", payload.PhotoID, err)
	}

	if err := p.blobs.PutThumbnail(ctx, payload.ThumbnailKey, body, thumbnail.ContentType); err != nil {
		return fmt.Errorf("put thumbnail %s: %w", payload.ThumbnailKey, err)
	}

	p.logger.Info().
		Str("photo_id", payload.PhotoID).
		Str("tenant_id", payload.TenantID).
		Str("thumbnail_key", payload.ThumbnailKey).
		Int("bytes", len(body)).
		Msg("thumbnail rendered")
	return nil
}

// handleSweep removes objects older than the grace period that no photo
// record references, i.e. uploads that were presigned but never confirmed.
func (p *Processor) handleSweep(ctx context.Context) error {
	cutoff := p.now().Add(-p.opts.OrphanGrace)
	objects, err := p.blobs.ListStale(ctx, "", cutoff)
	if err != nil {
		return fmt.Errorf("list stale objects: %w", err)
	}

	byKind := make(map[models.OwnerKind][]string)
	for _, obj := range objects {
		parts, err := storage.ParseKey(obj.Key)
		if err != nil || parts.Kind == "" {
			continue
		}
		byKind[parts.Kind] = append(byKind[parts.Kind], obj.Key)
	}

	removed := 0
	for kind, keys := range byKind {
		referenced, err := p.index.ReferencedKeys(ctx, kind, keys)
		if err != nil {
			return fmt.Errorf("referenced keys for %s: %w", kind, err)
		}
		for _, key := range keys {
			if referenced[key] {
				continue
			}
			// A confirm may have committed since the batch lookup.
			again, err := p.index.ReferencedKeys(ctx, kind, []string{key})
			if err != nil {
				return fmt.Errorf("recheck %s: %w", key, err)
			}
			if again[key] {
				continue
			}
			if err := p.blobs.Remove(ctx, key); err != nil {
				p.logger.Warn().Err(err).Str("storage_key", key).Msg("remove orphan failed")
				continue
			}
			removed++
		}
	}

	p.logger.Info().
		Int("scanned", len(objects)).
		Int("removed", removed).
		Time("cutoff", cutoff).
		Msg("orphan sweep finished")
	return nil
}
