package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classnest/classnest-api/internal/models"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type mockAssetRepo struct {
	assets    map[string]*models.Asset
	createErr error
	deleteErr error
}

func newMockAssetRepo() *mockAssetRepo {
	return &mockAssetRepo{assets: make(map[string]*models.Asset)}
}

func (m *mockAssetRepo) Create(ctx context.Context, kind models.AssetKind, asset *models.Asset) error {
	if m.createErr != nil {
		return m.createErr
	}
	if asset.ID == "" {
		asset.ID = "ast1"
	}
	m.assets[asset.ID] = asset
	return nil
}

func (m *mockAssetRepo) FindByID(ctx context.Context, kind models.AssetKind, id string) (*models.Asset, error) {
	if a, ok := m.assets[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssetRepo) ListByClassroom(ctx context.Context, kind models.AssetKind, classroomID string) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range m.assets {
		if a.ClassroomID == classroomID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssetRepo) Delete(ctx context.Context, kind models.AssetKind, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.assets, id)
	return nil
}

type mockBlobStorage struct {
	blobs     map[string][]byte
	saveErr   error
	deleteErr error
	deletes   []string
}

func newMockBlobStorage() *mockBlobStorage {
	return &mockBlobStorage{blobs: make(map[string][]byte)}
}

func (m *mockBlobStorage) Save(key string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.blobs[key] = data
	return key, nil
}

func (m *mockBlobStorage) Delete(key string) error {
	m.deletes = append(m.deletes, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.blobs, key)
	return nil
}

func assetFixture(t *testing.T) (*AssetService, *mockAssetRepo, *mockBlobStorage, *mockClassroomRepo) {
	t.Helper()
	classrooms := newMockClassroomRepo()
	classrooms.classrooms["cls1"] = &models.Classroom{ID: "cls1", OwnerID: "tp-u1"}
	profiles := newMockProfileRepo()
	_, err := profiles.EnsureTeacher(context.Background(), "u1")
	require.NoError(t, err)
	assets := newMockAssetRepo()
	blobs := newMockBlobStorage()
	svc := NewAssetService(assets, blobs, profiles, classrooms, nil)
	return svc, assets, blobs, classrooms
}

func TestUploadStoresBlobAndRecord(t *testing.T) {
	svc, assets, blobs, _ := assetFixture(t)

	asset, err := svc.Upload(context.Background(), "u1", models.AssetNote, "cls1", "Week 1 notes", "week1.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.Contains(t, assets.assets, asset.ID)
	assert.Contains(t, blobs.blobs, asset.ObjectKey)
	assert.Equal(t, "cls1", asset.ClassroomID)
}

func TestUploadRecordFailureCleansBlob(t *testing.T) {
	svc, assets, blobs, _ := assetFixture(t)
	assets.createErr = errors.New("notes table down")

	_, err := svc.Upload(context.Background(), "u1", models.AssetNote, "cls1", "Week 1", "week1.pdf", []byte("pdf"))
	require.Error(t, err)
	assert.Empty(t, blobs.blobs)
}

func TestUploadRequiresOwnership(t *testing.T) {
	svc, _, _, _ := assetFixture(t)

	_, err := svc.Upload(context.Background(), "intruder", models.AssetNote, "cls1", "Week 1", "week1.pdf", []byte("pdf"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestDeleteRemovesRecordEvenWhenBlobDeleteFails(t *testing.T) {
	svc, assets, blobs, _ := assetFixture(t)
	asset, err := svc.Upload(context.Background(), "u1", models.AssetNote, "cls1", "Week 1", "week1.pdf", []byte("pdf"))
	require.NoError(t, err)

	blobs.deleteErr = errors.New("disk detached")
	err = svc.Delete(context.Background(), "u1", models.AssetNote, "cls1", asset.ID)
	require.NoError(t, err)
	// Record gone, orphaned blob accepted.
	assert.NotContains(t, assets.assets, asset.ID)
	assert.Contains(t, blobs.deletes, asset.ObjectKey)
}

func TestDeleteRejectsForeignClassroomAsset(t *testing.T) {
	svc, assets, _, classrooms := assetFixture(t)
	classrooms.classrooms["cls2"] = &models.Classroom{ID: "cls2", OwnerID: "tp-u1"}
	assets.assets["astX"] = &models.Asset{ID: "astX", ClassroomID: "cls2", ObjectKey: "k"}

	err := svc.Delete(context.Background(), "u1", models.AssetNote, "cls1", "astX")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Contains(t, assets.assets, "astX")
}

func TestListReturnsEmptySliceNotNil(t *testing.T) {
	svc, _, _, _ := assetFixture(t)
	assets, err := svc.List(context.Background(), models.AssetNote, "cls1")
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}
