// Package servicetest provides in-memory collaborators for exercising the
// photo service without postgres, redis or a blob store.
package servicetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/daveharmswebdev/property-manager-sub002/internal/cache"
	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
	"github.com/daveharmswebdev/property-manager-sub002/internal/repository"
	"github.com/daveharmswebdev/property-manager-sub002/internal/storage"
)

func ownerKey(owner models.Owner) string {
	return owner.TenantID + "|" + string(owner.Kind) + "|" + owner.ID
}

// MemoryPhotos mirrors the postgres repository semantics, including the
// single-primary index. Writes counts every mutating call that reached storage.
type MemoryPhotos struct {
	mu     sync.Mutex
	photos map[string][]models.Photo
	clock  time.Time
	Writes int
}

func NewMemoryPhotos() *MemoryPhotos {
	return &MemoryPhotos{
		photos: map[string][]models.Photo{},
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MemoryPhotos) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// Snapshot returns the owner's photos in display order.
func (m *MemoryPhotos) Snapshot(owner models.Owner) []models.Photo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Photo(nil), m.photos[ownerKey(owner)]...)
	models.SortPhotos(out)
	return out
}

func (m *MemoryPhotos) ListByOwner(_ context.Context, owner models.Owner) ([]models.Photo, error) {
	return m.Snapshot(owner), nil
}

func (m *MemoryPhotos) GetByID(_ context.Context, owner models.Owner, id string) (models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, photo := range m.photos[ownerKey(owner)] {
		if photo.ID == id {
			return photo, nil
		}
	}
	return models.Photo{}, repository.ErrPhotoNotFound
}

func (m *MemoryPhotos) CountByOwner(_ context.Context, owner models.Owner) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.photos[ownerKey(owner)]), nil
}

func (m *MemoryPhotos) Create(_ context.Context, photo models.Photo) (models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ownerKey(photo.Owner())
	for _, list := range m.photos {
		for _, existing := range list {
			if existing.StorageKey == photo.StorageKey {
				return models.Photo{}, repository.ErrDuplicateStorageKey
			}
		}
	}
	if photo.IsPrimary {
		for _, existing := range m.photos[key] {
			if existing.IsPrimary {
				return models.Photo{}, repository.ErrPrimaryConflict
			}
		}
	}

	now := m.tick()
	photo.CreatedAt, photo.UpdatedAt = now, now
	m.photos[key] = append(m.photos[key], photo)
	m.Writes++
	return photo, nil
}

func (m *MemoryPhotos) DeleteAndPromote(_ context.Context, owner models.Owner, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ownerKey(owner)
	list := m.photos[key]
	idx := -1
	for i, photo := range list {
		if photo.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", repository.ErrPhotoNotFound
	}

	wasPrimary := list[idx].IsPrimary
	remaining := append(append([]models.Photo(nil), list[:idx]...), list[idx+1:]...)
	m.Writes++

	promoted := ""
	if wasPrimary {
		if candidate, ok := models.PromotionCandidate(remaining); ok {
			for i := range remaining {
				if remaining[i].ID == candidate.ID {
					remaining[i].IsPrimary = true
					remaining[i].UpdatedAt = m.tick()
				}
			}
			promoted = candidate.ID
		}
	}
	m.photos[key] = remaining
	return promoted, nil
}

func (m *MemoryPhotos) SetPrimary(_ context.Context, owner models.Owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.photos[ownerKey(owner)]
	found := false
	for _, photo := range list {
		if photo.ID == id {
			found = true
		}
	}
	if !found {
		return repository.ErrPhotoNotFound
	}

	now := m.tick()
	for i := range list {
		list[i].IsPrimary = list[i].ID == id
		list[i].UpdatedAt = now
	}
	m.Writes++
	return nil
}

func (m *MemoryPhotos) Reorder(_ context.Context, owner models.Owner, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.photos[ownerKey(owner)]
	if len(list) != len(ids) {
		return repository.ErrPhotoSetChanged
	}
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	for _, photo := range list {
		if _, ok := index[photo.ID]; !ok {
			return repository.ErrPhotoSetChanged
		}
	}

	now := m.tick()
	for i := range list {
		list[i].DisplayOrder = index[list[i].ID]
		list[i].UpdatedAt = now
	}
	m.Writes++
	return nil
}

// ReferencedKeys reports which keys are recorded for the owner kind.
func (m *MemoryPhotos) ReferencedKeys(_ context.Context, kind models.OwnerKind, keys []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		wanted[key] = true
	}
	out := map[string]bool{}
	for _, list := range m.photos {
		for _, photo := range list {
			if photo.OwnerKind != kind {
				continue
			}
			if wanted[photo.StorageKey] {
				out[photo.StorageKey] = true
			}
			if thumb := photo.ThumbnailKey(); thumb != "" && wanted[thumb] {
				out[thumb] = true
			}
		}
	}
	return out, nil
}

// MemoryBlobs is a blob gateway holding object metadata only.
type MemoryBlobs struct {
	mu        sync.Mutex
	objects   map[string]storage.ObjectInfo
	Deleted   []string
	DeleteErr error
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{objects: map[string]storage.ObjectInfo{}}
}

// Put records an uploaded object as the store would report it.
func (b *MemoryBlobs) Put(key, contentType string, size int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = storage.ObjectInfo{Key: key, ContentType: contentType, SizeBytes: size}
}

func (b *MemoryBlobs) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

func (b *MemoryBlobs) GenerateUploadURL(_ context.Context, req storage.UploadRequest) (storage.UploadTicket, error) {
	key, thumb := storage.BuildKeys(req.Owner, req.ContentType, time.Now())
	return storage.UploadTicket{
		URL:                 "https://blobs.test/upload/" + key,
		StorageKey:          key,
		ThumbnailStorageKey: thumb,
		ExpiresAt:           time.Now().Add(15 * time.Minute),
		Headers:             map[string]string{"Content-Type": req.ContentType},
	}, nil
}

func (b *MemoryBlobs) ConfirmUpload(_ context.Context, key string) (storage.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.objects[key]
	if !ok {
		return storage.ObjectInfo{}, fmt.Errorf("%s: %w", key, storage.ErrObjectNotFound)
	}
	return info, nil
}

func (b *MemoryBlobs) ViewURL(_ context.Context, key string) (string, error) {
	return "https://blobs.test/view/" + key, nil
}

func (b *MemoryBlobs) ThumbnailURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return "https://blobs.test/view/" + key, nil
}

func (b *MemoryBlobs) Delete(_ context.Context, key, thumbKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	for _, k := range []string{key, thumbKey} {
		if k == "" {
			continue
		}
		delete(b.objects, k)
		b.Deleted = append(b.Deleted, k)
	}
	return nil
}

// StaticOwners is an owner directory over a fixed set of owners.
type StaticOwners struct {
	mu     sync.Mutex
	owners map[models.Owner]bool
}

func NewStaticOwners(owners ...models.Owner) *StaticOwners {
	s := &StaticOwners{owners: map[models.Owner]bool{}}
	for _, owner := range owners {
		s.owners[owner] = true
	}
	return s
}

func (s *StaticOwners) Exists(_ context.Context, owner models.Owner) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners[owner], nil
}

// RecordingQueue captures enqueued thumbnail tasks.
type RecordingQueue struct {
	mu         sync.Mutex
	Thumbnails []models.Photo
}

func (q *RecordingQueue) EnqueueThumbnail(_ context.Context, photo models.Photo) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Thumbnails = append(q.Thumbnails, photo)
	return nil
}

// BusyLocker refuses every lock.
type BusyLocker struct{}

func (BusyLocker) Acquire(_ context.Context, key string) (func(), error) {
	return nil, fmt.Errorf("%w: %s", cache.ErrLockNotAcquired, key)
}
