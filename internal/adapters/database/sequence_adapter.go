package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/clients/postgres"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
)

// SequenceAdapter implements SequenceRepository on the counters table
type SequenceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSequenceAdapter creates a new sequence adapter
func NewSequenceAdapter(client *postgres.Client) repositories.SequenceRepository {
	return &SequenceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// NextValue increments the named counter in a single upsert. The row lock
// taken by ON CONFLICT DO UPDATE serializes concurrent callers.
func (a *SequenceAdapter) NextValue(ctx context.Context, name string) (int64, error) {
	query, args, err := a.db.Insert("counters").
		Rows(goqu.Record{"name": name, "value": 1}).
		OnConflict(goqu.DoUpdate("name", goqu.Record{"value": goqu.L(`"counters"."value" + 1`)})).
		Returning("value").
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build sequence query", err)
	}

	var value int64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		return 0, apperrors.NewInternalError("failed to get next "+name, err)
	}
	return value, nil
}
