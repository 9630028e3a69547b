package models

import (
	"sort"
	"time"
)

type OwnerKind string

const (
	OwnerKindProperty  OwnerKind = "property"
	OwnerKindWorkOrder OwnerKind = "work_order"
)

var OwnerKinds = []OwnerKind{OwnerKindProperty, OwnerKindWorkOrder}

// KeySegment is the path segment used for the owner kind in storage keys and routes.
func (k OwnerKind) KeySegment() string {
	switch k {
	case OwnerKindProperty:
		return "properties"
	case OwnerKindWorkOrder:
		return "work-orders"
	default:
		return ""
	}
}

func (k OwnerKind) Valid() bool {
	return k.KeySegment() != ""
}

func OwnerKindFromSegment(segment string) (OwnerKind, bool) {
	for _, kind := range OwnerKinds {
		if kind.KeySegment() == segment {
			return kind, true
		}
	}
	return "", false
}

// Owner identifies the property or work order a photo belongs to, scoped to its tenant.
type Owner struct {
	TenantID string
	Kind     OwnerKind
	ID       string
}

type Photo struct {
	ID                  string
	TenantID            string
	OwnerKind           OwnerKind
	OwnerID             string
	StorageKey          string
	ThumbnailStorageKey *string
	OriginalFileName    string
	ContentType         string
	FileSizeBytes       int64
	DisplayOrder        int
	IsPrimary           bool
	CreatedByUserID     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (p Photo) Owner() Owner {
	return Owner{TenantID: p.TenantID, Kind: p.OwnerKind, ID: p.OwnerID}
}

func (p Photo) ThumbnailKey() string {
	if p.ThumbnailStorageKey == nil {
		return ""
	}
	return *p.ThumbnailStorageKey
}

// SortPhotos orders photos by display order, then creation time, then id.
func SortPhotos(photos []Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		a, b := photos[i], photos[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// PromotionCandidate returns the photo that inherits the primary flag when the
// current primary is removed: the lowest display order among the remaining photos.
func PromotionCandidate(remaining []Photo) (Photo, bool) {
	if len(remaining) == 0 {
		return Photo{}, false
	}
	sorted := make([]Photo, len(remaining))
	copy(sorted, remaining)
	SortPhotos(sorted)
	return sorted[0], true
}
