package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
)

type PhotoRepository struct {
	pool *pgxpool.Pool
}

func NewPhotoRepository(pool *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

const photoColumns = `
	id, account_id::text, %[1]s::text, storage_key, thumbnail_storage_key,
	original_file_name, content_type, file_size_bytes, display_order, is_primary,
	created_by_user_id::text, created_at, updated_at
`

func scanPhoto(row pgx.Row, kind models.OwnerKind) (models.Photo, error) {
	photo := models.Photo{OwnerKind: kind}
	err := row.Scan(
		&photo.ID,
		&photo.TenantID,
		&photo.OwnerID,
		&photo.StorageKey,
		&photo.ThumbnailStorageKey,
		&photo.OriginalFileName,
		&photo.ContentType,
		&photo.FileSizeBytes,
		&photo.DisplayOrder,
		&photo.IsPrimary,
		&photo.CreatedByUserID,
		&photo.CreatedAt,
		&photo.UpdatedAt,
	)
	return photo, err
}

func (r *PhotoRepository) ListByOwner(ctx context.Context, owner models.Owner) ([]models.Photo, error) {
	table, err := tableFor(owner.Kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT `+photoColumns+`
		FROM %[2]s
		WHERE account_id = $1 AND %[1]s = $2
		ORDER BY display_order, created_at, id
	`, table.ownerColumn, table.name)

	rows, err := r.pool.Query(ctx, query, owner.TenantID, owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows, owner.Kind)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

func (r *PhotoRepository) GetByID(ctx context.Context, owner models.Owner, id string) (models.Photo, error) {
	table, err := tableFor(owner.Kind)
	if err != nil {
		return models.Photo{}, err
	}

	query := fmt.Sprintf(`
		SELECT `+photoColumns+`
		FROM %[2]s
		WHERE id = $1 AND account_id = $2 AND %[1]s = $3
	`, table.ownerColumn, table.name)

	photo, err := scanPhoto(r.pool.QueryRow(ctx, query, id, owner.TenantID, owner.ID), owner.Kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Photo{}, ErrPhotoNotFound
		}
		return models.Photo{}, err
	}
	return photo, nil
}

func (r *PhotoRepository) CountByOwner(ctx context.Context, owner models.Owner) (int, error) {
	table, err := tableFor(owner.Kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE account_id = $1 AND %s = $2`, table.name, table.ownerColumn)

	var count int
	if err := r.pool.QueryRow(ctx, query, owner.TenantID, owner.ID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PhotoRepository) Create(ctx context.Context, photo models.Photo) (models.Photo, error) {
	table, err := tableFor(photo.OwnerKind)
	if err != nil {
		return models.Photo{}, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %[2]s (
			id, account_id, %[1]s, storage_key, thumbnail_storage_key,
			original_file_name, content_type, file_size_bytes, display_order, is_primary,
			created_by_user_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, NOW(), NOW()
		)
		RETURNING created_at, updated_at
	`, table.ownerColumn, table.name)

	err = r.pool.QueryRow(ctx, query,
		photo.ID,
		photo.TenantID,
		photo.OwnerID,
		photo.StorageKey,
		photo.ThumbnailStorageKey,
		photo.OriginalFileName,
		photo.ContentType,
		photo.FileSizeBytes,
		photo.DisplayOrder,
		photo.IsPrimary,
		photo.CreatedByUserID,
	).Scan(&photo.CreatedAt, &photo.UpdatedAt)
	if err != nil {
		return models.Photo{}, table.translateUnique(err)
	}
	return photo, nil
}

// DeleteAndPromote removes a photo and, when it was primary, promotes the
// lowest-ordered sibling in the same transaction. It returns the promoted id,
// or "" when nothing was promoted.
func (r *PhotoRepository) DeleteAndPromote(ctx context.Context, owner models.Owner, id string) (string, error) {
	table, err := tableFor(owner.Kind)
	if err != nil {
		return "", err
	}

	deleteQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND account_id = $2 AND %s = $3
		RETURNING is_primary
	`, table.name, table.ownerColumn)

	promoteQuery := fmt.Sprintf(`
		UPDATE %[2]s
		SET is_primary = TRUE,
		    updated_at = NOW()
		WHERE id = (
			SELECT id FROM %[2]s
			WHERE account_id = $1 AND %[1]s = $2
			ORDER BY display_order, created_at, id
			LIMIT 1
		)
		RETURNING id
	`, table.ownerColumn, table.name)

	var promoted string
	err = withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var wasPrimary bool
		if err := tx.QueryRow(ctx, deleteQuery, id, owner.TenantID, owner.ID).Scan(&wasPrimary); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPhotoNotFound
			}
			return err
		}
		if !wasPrimary {
			return nil
		}

		err := tx.QueryRow(ctx, promoteQuery, owner.TenantID, owner.ID).Scan(&promoted)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return "", table.translateUnique(err)
	}
	return promoted, nil
}

// SetPrimary clears the current primary and flags id in one transaction.
func (r *PhotoRepository) SetPrimary(ctx context.Context, owner models.Owner, id string) error {
	table, err := tableFor(owner.Kind)
	if err != nil {
		return err
	}

	clearQuery := fmt.Sprintf(`
		UPDATE %s
		SET is_primary = FALSE,
		    updated_at = NOW()
		WHERE account_id = $1 AND %s = $2 AND is_primary AND id <> $3
	`, table.name, table.ownerColumn)

	setQuery := fmt.Sprintf(`
		UPDATE %s
		SET is_primary = TRUE,
		    updated_at = NOW()
		WHERE id = $1 AND account_id = $2 AND %s = $3
	`, table.name, table.ownerColumn)

	err = withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearQuery, owner.TenantID, owner.ID, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, setQuery, id, owner.TenantID, owner.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrPhotoNotFound
		}
		return nil
	})
	return table.translateUnique(err)
}

// Reorder assigns display_order = index for every id. The owner's current
// photo set is locked and must equal ids exactly.
func (r *PhotoRepository) Reorder(ctx context.Context, owner models.Owner, ids []string) error {
	table, err := tableFor(owner.Kind)
	if err != nil {
		return err
	}

	lockQuery := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE account_id = $1 AND %s = $2
		FOR UPDATE
	`, table.name, table.ownerColumn)

	updateQuery := fmt.Sprintf(`
		UPDATE %[2]s AS p
		SET display_order = o.ord - 1,
		    updated_at = NOW()
		FROM unnest($3::text[]) WITH ORDINALITY AS o(id, ord)
		WHERE p.id = o.id AND p.account_id = $1 AND p.%[1]s = $2
	`, table.ownerColumn, table.name)

	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockQuery, owner.TenantID, owner.ID)
		if err != nil {
			return err
		}
		current, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		if !sameSet(current, ids) {
			return ErrPhotoSetChanged
		}

		tag, err := tx.Exec(ctx, updateQuery, owner.TenantID, owner.ID, ids)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != int64(len(ids)) {
			return ErrPhotoSetChanged
		}
		return nil
	})
}

// ReferencedKeys returns the subset of keys recorded as an original or
// thumbnail key for the given owner kind.
func (r *PhotoRepository) ReferencedKeys(ctx context.Context, kind models.OwnerKind, keys []string) (map[string]bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT storage_key, thumbnail_storage_key
		FROM %s
		WHERE storage_key = ANY($1) OR thumbnail_storage_key = ANY($1)
	`, table.name)

	rows, err := r.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	referenced := make(map[string]bool)
	for rows.Next() {
		var (
			key   string
			thumb *string
		)
		if err := rows.Scan(&key, &thumb); err != nil {
			return nil, err
		}
		referenced[key] = true
		if thumb != nil {
			referenced[*thumb] = true
		}
	}
	return referenced, rows.Err()
}

func sameSet(current, ids []string) bool {
	if len(current) != len(ids) {
		return false
	}
	seen := make(map[string]struct{}, len(current))
	for _, id := range current {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			return false
		}
		delete(seen, id)
	}
	return true
}
