package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
)

var (
	ErrPhotoNotFound       = errors.New("photo not found")
	ErrPrimaryConflict     = errors.New("owner already has a primary photo")
	ErrDuplicateStorageKey = errors.New("storage key already recorded")
	ErrPhotoSetChanged     = errors.New("photo set changed during reorder")
	ErrUnknownOwnerKind    = errors.New("unknown owner kind")
)

// photoTable names the physical table and constraints backing one owner kind.
type photoTable struct {
	name                 string
	ownerColumn          string
	primaryIndex         string
	storageKeyConstraint string
}

var photoTables = map[models.OwnerKind]photoTable{
	models.OwnerKindProperty: {
		name:                 "property_photos",
		ownerColumn:          "property_id",
		primaryIndex:         "property_photos_primary_idx",
		storageKeyConstraint: "property_photos_storage_key_key",
	},
	models.OwnerKindWorkOrder: {
		name:                 "work_order_photos",
		ownerColumn:          "work_order_id",
		primaryIndex:         "work_order_photos_primary_idx",
		storageKeyConstraint: "work_order_photos_storage_key_key",
	},
}

func tableFor(kind models.OwnerKind) (photoTable, error) {
	table, ok := photoTables[kind]
	if !ok {
		return photoTable{}, fmt.Errorf("%w: %q", ErrUnknownOwnerKind, kind)
	}
	return table, nil
}

// translateUnique maps unique violations on the photo tables to repository errors.
func (t photoTable) translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case t.primaryIndex:
		return fmt.Errorf("%w: %s", ErrPrimaryConflict, pgErr.Detail)
	case t.storageKeyConstraint:
		return fmt.Errorf("%w: %s", ErrDuplicateStorageKey, pgErr.Detail)
	}
	return err
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	if pool == nil {
		return errors.New("database not initialized")
	}
	return pgx.BeginFunc(ctx, pool, fn)
}
