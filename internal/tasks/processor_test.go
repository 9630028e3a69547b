package tasks_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
	"github.com/daveharmswebdev/property-manager-sub002/internal/storage"
	"github.com/daveharmswebdev/property-manager-sub002/internal/tasks"
)

type object struct {
	body     []byte
	modified time.Time
}

type fakeStore struct {
	objects map[string]object
	removed []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]object{}}
}

func (s *fakeStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	obj, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}

func (s *fakeStore) PutThumbnail(_ context.Context, key string, body []byte, _ string) error {
	s.objects[key] = object{body: body, modified: time.Now()}
	return nil
}

func (s *fakeStore) ListStale(_ context.Context, _ string, cutoff time.Time) ([]storage.ObjectSummary, error) {
	var out []storage.ObjectSummary
	for key, obj := range s.objects {
		if obj.modified.Before(cutoff) {
			out = append(out, storage.ObjectSummary{Key: key, LastModified: obj.modified})
		}
	}
	return out, nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	delete(s.objects, key)
	s.removed = append(s.removed, key)
	return nil
}

type fakeIndex map[string]bool

func (f fakeIndex) ReferencedKeys(_ context.Context, _ models.OwnerKind, keys []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, key := range keys {
		if f[key] {
			out[key] = true
		}
	}
	return out, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func message(values map[string]interface{}) redis.XMessage {
	return redis.XMessage{ID: "1-0", Values: values}
}

func TestProcessor_Thumbnail(t *testing.T) {
	store := newFakeStore()
	store.objects["t/properties/2026/a.png"] = object{body: pngBytes(t, 800, 400), modified: time.Now()}
	p := tasks.NewProcessor(store, fakeIndex{}, tasks.Options{ThumbnailMaxDimension: 200, OrphanGrace: time.Hour}, zerolog.Nop())

	err := p.Handle(context.Background(), message(map[string]interface{}{
		"type":         "thumbnail",
		"photoId":      "p1",
		"tenantId":     "t",
		"storageKey":   "t/properties/2026/a.png",
		"thumbnailKey": "t/properties/2026/a_thumb.jpg",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	thumb, ok := store.objects["t/properties/2026/a_thumb.jpg"]
	if !ok {
		t.Fatal("expected thumbnail to be written")
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb.body))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 100 {
		t.Fatalf("expected 200x100, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessor_ThumbnailSkipsMissingOriginal(t *testing.T) {
	store := newFakeStore()
	p := tasks.NewProcessor(store, fakeIndex{}, tasks.Options{ThumbnailMaxDimension: 200}, zerolog.Nop())

	err := p.Handle(context.Background(), message(map[string]interface{}{
		"type":         "thumbnail",
		"storageKey":   "t/properties/2026/gone.jpg",
		"thumbnailKey": "t/properties/2026/gone_thumb.jpg",
	}))
	if err != nil {
		t.Fatalf("expected deleted originals to be skipped, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatal("expected nothing written")
	}
}

func TestProcessor_SweepRemovesUnreferencedStaleObjects(t *testing.T) {
	store := newFakeStore()
	old := time.Now().Add(-48 * time.Hour)
	store.objects["t/properties/2026/kept.jpg"] = object{modified: old}
	store.objects["t/properties/2026/kept_thumb.jpg"] = object{modified: old}
	store.objects["t/work-orders/2026/orphan.jpg"] = object{modified: old}
	store.objects["t/properties/2026/fresh.jpg"] = object{modified: time.Now()}
	store.objects["t/vendors/2026/unknown.jpg"] = object{modified: old}

	index := fakeIndex{"t/properties/2026/kept.jpg": true, "t/properties/2026/kept_thumb.jpg": true}
	p := tasks.NewProcessor(store, index, tasks.Options{OrphanGrace: 24 * time.Hour}, zerolog.Nop())

	if err := p.Handle(context.Background(), message(map[string]interface{}{"type": "sweep"})); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(store.removed) != 1 || store.removed[0] != "t/work-orders/2026/orphan.jpg" {
		t.Fatalf("unexpected removals %v", store.removed)
	}
	for _, key := range []string{"t/properties/2026/kept.jpg", "t/properties/2026/fresh.jpg", "t/vendors/2026/unknown.jpg"} {
		if _, ok := store.objects[key]; !ok {
			t.Fatalf("expected %s to survive", key)
		}
	}
}

// confirmingIndex reports key as referenced from the second lookup on, the
// way a confirm that commits mid-sweep would.
type confirmingIndex struct {
	key   string
	calls int
}

func (c *confirmingIndex) ReferencedKeys(_ context.Context, _ models.OwnerKind, keys []string) (map[string]bool, error) {
	c.calls++
	out := map[string]bool{}
	if c.calls == 1 {
		return out, nil
	}
	for _, key := range keys {
		if key == c.key {
			out[key] = true
		}
	}
	return out, nil
}

func TestProcessor_SweepSkipsKeysConfirmedMidSweep(t *testing.T) {
	store := newFakeStore()
	old := time.Now().Add(-48 * time.Hour)
	store.objects["t/properties/2026/late.jpg"] = object{modified: old}
	store.objects["t/properties/2026/orphan.jpg"] = object{modified: old}

	index := &confirmingIndex{key: "t/properties/2026/late.jpg"}
	p := tasks.NewProcessor(store, index, tasks.Options{OrphanGrace: 24 * time.Hour}, zerolog.Nop())

	if err := p.Handle(context.Background(), message(map[string]interface{}{"type": "sweep"})); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if _, ok := store.objects["t/properties/2026/late.jpg"]; !ok {
		t.Fatal("expected the confirmed upload to survive")
	}
	if len(store.removed) != 1 || store.removed[0] != "t/properties/2026/orphan.jpg" {
		t.Fatalf("unexpected removals %v", store.removed)
	}
}

func TestProcessor_UnknownTypeIsAcked(t *testing.T) {
	p := tasks.NewProcessor(newFakeStore(), fakeIndex{}, tasks.Options{}, zerolog.Nop())

	if err := p.Handle(context.Background(), message(map[string]interface{}{"type": "nsfw"})); err != nil {
		t.Fatalf("expected unknown types to be dropped, got %v", err)
	}
}
