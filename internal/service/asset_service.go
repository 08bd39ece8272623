package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classnest/classnest-api/internal/models"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type assetRepository interface {
	Create(ctx context.Context, kind models.AssetKind, asset *models.Asset) error
	FindByID(ctx context.Context, kind models.AssetKind, id string) (*models.Asset, error)
	ListByClassroom(ctx context.Context, kind models.AssetKind, classroomID string) ([]models.Asset, error)
	Delete(ctx context.Context, kind models.AssetKind, id string) error
}

type blobStorage interface {
	Save(key string, data []byte) (string, error)
	Delete(key string) error
}

// AssetService coordinates the two-part asset lifecycle: a database record
// and a blob in object storage. The record is the source of truth; the blob
// follows it.
type AssetService struct {
	assets     assetRepository
	storage    blobStorage
	teachers   teacherReader
	classrooms classroomBinder
	logger     *zap.Logger
}

// NewAssetService constructs the service.
func NewAssetService(assets assetRepository, storage blobStorage, teachers teacherReader, classrooms classroomBinder, logger *zap.Logger) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetService{assets: assets, storage: storage, teachers: teachers, classrooms: classrooms, logger: logger}
}

// Upload stores the blob first, then the record. A failed record insert after
// a stored blob leaves an unreferenced blob behind, which is cleaned up best
// effort before returning.
func (s *AssetService) Upload(ctx context.Context, userID string, kind models.AssetKind, classroomID, title, filename string, content []byte) (*models.Asset, error) {
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title required")
	}
	if len(content) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file content required")
	}
	if _, err := s.ownedClassroom(ctx, userID, classroomID); err != nil {
		return nil, err
	}

	key := objectKey(kind, classroomID, filename)
	if _, err := s.storage.Save(key, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	asset := &models.Asset{
		ClassroomID: classroomID,
		Title:       title,
		ObjectKey:   key,
		UploadedBy:  userID,
	}
	if err := s.assets.Create(ctx, kind, asset); err != nil {
		if delErr := s.storage.Delete(key); delErr != nil {
			s.logger.Warn("failed to remove blob after record insert failure", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create asset record")
	}
	return asset, nil
}

// List returns a classroom's assets of the given kind, newest first.
func (s *AssetService) List(ctx context.Context, kind models.AssetKind, classroomID string) ([]models.Asset, error) {
	assets, err := s.assets.ListByClassroom(ctx, kind, classroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assets")
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	return assets, nil
}

// Delete removes an asset after verifying the caller owns the classroom the
// asset belongs to. The blob delete is best effort and logged on failure; the
// record delete always runs so the asset never stays listed because of a
// storage hiccup. The orphaned blob is the acceptable residue.
func (s *AssetService) Delete(ctx context.Context, userID string, kind models.AssetKind, classroomID, assetID string) error {
	if _, err := s.ownedClassroom(ctx, userID, classroomID); err != nil {
		return err
	}

	asset, err := s.assets.FindByID(ctx, kind, assetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "asset not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load asset")
	}
	if asset.ClassroomID != classroomID {
		return appErrors.Clone(appErrors.ErrNotFound, "asset not found")
	}

	if err := s.storage.Delete(asset.ObjectKey); err != nil {
		s.logger.Warn("asset blob delete failed, record delete continues",
			zap.String("asset_id", asset.ID),
			zap.String("key", asset.ObjectKey),
			zap.Error(err),
		)
	}
	if err := s.assets.Delete(ctx, kind, asset.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete asset record")
	}
	return nil
}

func (s *AssetService) ownedClassroom(ctx context.Context, userID, classroomID string) (*models.Classroom, error) {
	classroom, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	teacher, err := s.teachers.FindTeacherByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not the classroom owner")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher profile")
	}
	if classroom.OwnerID != teacher.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not the classroom owner")
	}
	return classroom, nil
}

// objectKey namespaces blobs by kind and classroom and prefixes a fresh uuid
// so uploads never collide on filename.
func objectKey(kind models.AssetKind, classroomID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%ss/%s/%s-%s", kind, classroomID, uuid.NewString(), base)
}
