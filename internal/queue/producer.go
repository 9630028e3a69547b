package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
)

const (
	TaskThumbnail = "thumbnail"
	TaskSweep     = "sweep"
)

// Producer appends task messages to the photo task stream. A Producer without
// a redis client drops tasks silently.
type Producer struct {
	client *redis.Client
	stream string
}

func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

func (p *Producer) EnqueueThumbnail(ctx context.Context, photo models.Photo) error {
	return p.enqueue(ctx, map[string]any{
		"type":         TaskThumbnail,
		"photoId":      photo.ID,
		"tenantId":     photo.TenantID,
		"ownerKind":    string(photo.OwnerKind),
		"ownerId":      photo.OwnerID,
		"storageKey":   photo.StorageKey,
		"thumbnailKey": photo.ThumbnailKey(),
	})
}

func (p *Producer) EnqueueSweep(ctx context.Context) error {
	return p.enqueue(ctx, map[string]any{
		"type": TaskSweep,
	})
}

func (p *Producer) enqueue(ctx context.Context, values map[string]any) error {
	if p == nil || p.client == nil {
		return nil
	}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue %v: %w", values["type"], err)
	}
	return nil
}
