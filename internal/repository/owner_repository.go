package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daveharmswebdev/property-manager-sub002/internal/models"
)

// OwnerRepository answers tenancy questions about properties and work orders,
// which are maintained by the CRUD side of the application.
type OwnerRepository struct {
	pool *pgxpool.Pool
}

func NewOwnerRepository(pool *pgxpool.Pool) *OwnerRepository {
	return &OwnerRepository{pool: pool}
}

var ownerTables = map[models.OwnerKind]string{
	models.OwnerKindProperty:  "properties",
	models.OwnerKindWorkOrder: "work_orders",
}

func (r *OwnerRepository) Exists(ctx context.Context, owner models.Owner) (bool, error) {
	table, ok := ownerTables[owner.Kind]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownOwnerKind, owner.Kind)
	}
	if uuid.Validate(owner.ID) != nil || uuid.Validate(owner.TenantID) != nil {
		return false, nil
	}

	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE id = $1 AND account_id = $2 AND deleted_at IS NULL
		)
	`, table)

	var exists bool
	if err := r.pool.QueryRow(ctx, query, owner.ID, owner.TenantID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
