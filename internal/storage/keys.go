package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daveharmswebdev/property-manager-sub002/internal/media/sniffer"
	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
)

var ErrMalformedKey = errors.New("malformed storage key")

const thumbnailSuffix = "_thumb.jpg"

// KeyParts is the parsed prefix of a storage key: {tenant}/{segment}/...
type KeyParts struct {
	TenantID string
	Segment  string
	Kind     models.OwnerKind
}

// BuildKeys returns the original and thumbnail keys for a new upload.
func BuildKeys(owner models.Owner, contentType string, now time.Time) (string, string) {
	prefix := fmt.Sprintf("%s/%s/%d/%s", owner.TenantID, owner.Kind.KeySegment(), now.UTC().Year(), uuid.NewString())
	key := prefix + "." + sniffer.ExtensionForMIME(contentType)
	return key, ThumbnailKeyFor(key)
}

// ThumbnailKeyFor returns the only thumbnail key an original key may use:
// the key with its extension replaced by _thumb.jpg.
func ThumbnailKeyFor(key string) string {
	base := key
	if dot := strings.LastIndex(base, "."); dot > strings.LastIndex(base, "/") {
		base = base[:dot]
	}
	return base + thumbnailSuffix
}

func ParseKey(key string) (KeyParts, error) {
	parts := strings.Split(key, "/")
	if len(parts) < 2 || parts[0] == "" {
		return KeyParts{}, ErrMalformedKey
	}
	kind, _ := models.OwnerKindFromSegment(parts[1])
	return KeyParts{
		TenantID: parts[0],
		Segment:  parts[1],
		Kind:     kind,
	}, nil
}

// IsThumbnailKey reports whether key names a rendered thumbnail.
func IsThumbnailKey(key string) bool {
	return strings.HasSuffix(key, thumbnailSuffix)
}
