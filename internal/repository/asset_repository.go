package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classnest/classnest-api/internal/models"
)

// assetTables maps asset kinds onto their tables. Queries interpolate only
// values from this map, never caller input.
var assetTables = map[models.AssetKind]string{
	models.AssetNote:         "notes",
	models.AssetVideoLecture: "video_lectures",
}

// AssetRepository handles the note and video lecture records whose payloads
// live in external object storage.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository constructs the repository.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func tableFor(kind models.AssetKind) (string, error) {
	table, ok := assetTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown asset kind %q", kind)
	}
	return table, nil
}

// Create inserts an asset record.
func (r *AssetRepository) Create(ctx context.Context, kind models.AssetKind, asset *models.Asset) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, classroom_id, title, object_key, uploaded_by, created_at)
        VALUES (:id, :classroom_id, :title, :object_key, :uploaded_by, :created_at)`, table)
	if _, err := r.db.NamedExecContext(ctx, query, asset); err != nil {
		return fmt.Errorf("create %s: %w", kind, err)
	}
	return nil
}

// FindByID returns an asset record by id.
func (r *AssetRepository) FindByID(ctx context.Context, kind models.AssetKind, id string) (*models.Asset, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, classroom_id, title, object_key, uploaded_by, created_at FROM %s WHERE id = $1`, table)
	var asset models.Asset
	if err := r.db.GetContext(ctx, &asset, query, id); err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListByClassroom returns a classroom's assets, newest first.
func (r *AssetRepository) ListByClassroom(ctx context.Context, kind models.AssetKind, classroomID string) ([]models.Asset, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, classroom_id, title, object_key, uploaded_by, created_at FROM %s WHERE classroom_id = $1 ORDER BY created_at DESC`, table)
	var assets []models.Asset
	if err := r.db.SelectContext(ctx, &assets, query, classroomID); err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	return assets, nil
}

// Delete removes an asset record.
func (r *AssetRepository) Delete(ctx context.Context, kind models.AssetKind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id); err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}
