package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/boburshokhh/dormitory-files/internal/config"
	"github.com/boburshokhh/dormitory-files/internal/domain/model"
	"github.com/boburshokhh/dormitory-files/internal/repository"
	"github.com/boburshokhh/dormitory-files/internal/storage"
)

// --- Mock repositories ---

// mockFileRepo — мок FileRepository для unit-тестов.
type mockFileRepo struct {
	insertFn             func(ctx context.Context, f *model.FileRecord) error
	getLiveByIDFn        func(ctx context.Context, fileID string) (*model.FileRecord, error)
	findLiveByContentFn  func(ctx context.Context, ownerID, contentHash, category string) (*model.FileRecord, error)
	listLiveFn           func(ctx context.Context, filters repository.FileListFilters, limit, offset int) ([]*model.FileRecord, error)
	countLiveFn          func(ctx context.Context, filters repository.FileListFilters) (int, error)
	sumLiveSizeFn        func(ctx context.Context, ownerID string) (int64, error)
	incrementDownloadFn  func(ctx context.Context, fileID string) error
	softDeleteFn         func(ctx context.Context, fileID string) error
	activateOwnedFn      func(ctx context.Context, fileIDs []string, ownerID, entityType, entityID string) (int, error)
	countLiveOwnedFn     func(ctx context.Context, fileIDs []string, ownerID string) (int, error)
	setVerifiedFn        func(ctx context.Context, fileID string, verified bool, verifiedBy string) error
	listStaleUploadingFn func(ctx context.Context, cutoff time.Time) ([]*model.FileRecord, error)
	listLiveDuplicatesFn func(ctx context.Context) ([]*model.FileRecord, error)
}

func (m *mockFileRepo) Insert(ctx context.Context, f *model.FileRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, f)
	}
	f.ID = "00000000-0000-0000-0000-000000000001"
	return nil
}

func (m *mockFileRepo) GetLiveByID(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if m.getLiveByIDFn != nil {
		return m.getLiveByIDFn(ctx, fileID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockFileRepo) FindLiveByContent(ctx context.Context, ownerID, contentHash, category string) (*model.FileRecord, error) {
	if m.findLiveByContentFn != nil {
		return m.findLiveByContentFn(ctx, ownerID, contentHash, category)
	}
	return nil, repository.ErrNotFound
}

func (m *mockFileRepo) ListLive(ctx context.Context, filters repository.FileListFilters, limit, offset int) ([]*model.FileRecord, error) {
	if m.listLiveFn != nil {
		return m.listLiveFn(ctx, filters, limit, offset)
	}
	return nil, nil
}

func (m *mockFileRepo) CountLive(ctx context.Context, filters repository.FileListFilters) (int, error) {
	if m.countLiveFn != nil {
		return m.countLiveFn(ctx, filters)
	}
	return 0, nil
}

func (m *mockFileRepo) SumLiveSizeByOwner(ctx context.Context, ownerID string) (int64, error) {
	if m.sumLiveSizeFn != nil {
		return m.sumLiveSizeFn(ctx, ownerID)
	}
	return 0, nil
}

func (m *mockFileRepo) IncrementDownloadCount(ctx context.Context, fileID string) error {
	if m.incrementDownloadFn != nil {
		return m.incrementDownloadFn(ctx, fileID)
	}
	return nil
}

func (m *mockFileRepo) SoftDelete(ctx context.Context, fileID string) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, fileID)
	}
	return nil
}

func (m *mockFileRepo) ActivateOwned(ctx context.Context, fileIDs []string, ownerID, entityType, entityID string) (int, error) {
	if m.activateOwnedFn != nil {
		return m.activateOwnedFn(ctx, fileIDs, ownerID, entityType, entityID)
	}
	return len(fileIDs), nil
}

func (m *mockFileRepo) CountLiveOwned(ctx context.Context, fileIDs []string, ownerID string) (int, error) {
	if m.countLiveOwnedFn != nil {
		return m.countLiveOwnedFn(ctx, fileIDs, ownerID)
	}
	return len(fileIDs), nil
}

func (m *mockFileRepo) SetVerified(ctx context.Context, fileID string, verified bool, verifiedBy string) error {
	if m.setVerifiedFn != nil {
		return m.setVerifiedFn(ctx, fileID, verified, verifiedBy)
	}
	return nil
}

func (m *mockFileRepo) ListStaleUploading(ctx context.Context, cutoff time.Time) ([]*model.FileRecord, error) {
	if m.listStaleUploadingFn != nil {
		return m.listStaleUploadingFn(ctx, cutoff)
	}
	return nil, nil
}

func (m *mockFileRepo) ListLiveDuplicates(ctx context.Context) ([]*model.FileRecord, error) {
	if m.listLiveDuplicatesFn != nil {
		return m.listLiveDuplicatesFn(ctx)
	}
	return nil, nil
}

// mockLinkRepo — мок TempLinkRepository для unit-тестов.
type mockLinkRepo struct {
	insertFn               func(ctx context.Context, l *model.TempLink) error
	redeemFn               func(ctx context.Context, token, usedByIP string) (*repository.RedeemedLink, error)
	countActiveByCreatorFn func(ctx context.Context, createdBy string) (int, error)
	countActiveByFileFn    func(ctx context.Context, fileID string) (int, error)
	listByCreatorFn        func(ctx context.Context, createdBy string) ([]*model.TempLink, error)
	listAllFn              func(ctx context.Context) ([]*model.TempLink, error)
	deleteExpiredAndUsedFn func(ctx context.Context) (int, error)
	deleteOwnedFn          func(ctx context.Context, linkID string, createdBy *string) error
}

func (m *mockLinkRepo) Insert(ctx context.Context, l *model.TempLink) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, l)
	}
	l.ID = "00000000-0000-0000-0000-0000000000aa"
	l.CreatedAt = time.Now()
	return nil
}

func (m *mockLinkRepo) Redeem(ctx context.Context, token, usedByIP string) (*repository.RedeemedLink, error) {
	if m.redeemFn != nil {
		return m.redeemFn(ctx, token, usedByIP)
	}
	return nil, repository.ErrNotFound
}

func (m *mockLinkRepo) CountActiveByCreator(ctx context.Context, createdBy string) (int, error) {
	if m.countActiveByCreatorFn != nil {
		return m.countActiveByCreatorFn(ctx, createdBy)
	}
	return 0, nil
}

func (m *mockLinkRepo) CountActiveByFile(ctx context.Context, fileID string) (int, error) {
	if m.countActiveByFileFn != nil {
		return m.countActiveByFileFn(ctx, fileID)
	}
	return 0, nil
}

func (m *mockLinkRepo) ListByCreator(ctx context.Context, createdBy string) ([]*model.TempLink, error) {
	if m.listByCreatorFn != nil {
		return m.listByCreatorFn(ctx, createdBy)
	}
	return nil, nil
}

func (m *mockLinkRepo) ListAll(ctx context.Context) ([]*model.TempLink, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockLinkRepo) DeleteExpiredAndUsed(ctx context.Context) (int, error) {
	if m.deleteExpiredAndUsedFn != nil {
		return m.deleteExpiredAndUsedFn(ctx)
	}
	return 0, nil
}

func (m *mockLinkRepo) DeleteOwned(ctx context.Context, linkID string, createdBy *string) error {
	if m.deleteOwnedFn != nil {
		return m.deleteOwnedFn(ctx, linkID, createdBy)
	}
	return nil
}

// --- Mock object store ---

// mockStore — мок ObjectStore для unit-тестов.
type mockStore struct {
	putFn          func(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.PutResult, error)
	getStreamFn    func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteFn       func(ctx context.Context, key string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	presignedURLFn func(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
}

func (m *mockStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.PutResult, error) {
	if m.putFn != nil {
		return m.putFn(ctx, key, r, size, contentType)
	}
	return &storage.PutResult{ETag: "etag-test"}, nil
}

func (m *mockStore) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.getStreamFn != nil {
		return m.getStreamFn(ctx, key)
	}
	return io.NopCloser(nil), nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return true, nil
}

func (m *mockStore) PresignedURL(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	if m.presignedURLFn != nil {
		return m.presignedURLFn(ctx, key, fileName, ttl)
	}
	return "https://storage.example.com/" + key, nil
}

// --- Общие помощники ---

// testConfig возвращает конфигурацию с дефолтными лимитами для тестов.
func testConfig() *config.Config {
	return &config.Config{
		PresignTTL:             15 * time.Minute,
		MaxFileSize:            20 << 20,
		MaxFilesPerBatch:       10,
		MaxTotalSizePerOwner:   500 << 20,
		BlockedExtensions:      []string{"exe", "bat", "cmd", "sh", "msi", "dll", "js"},
		PublicBaseURL:          "https://dorm.example.com/api",
		LinkExpiryMinHours:     1,
		LinkExpiryMaxHours:     168,
		LinkExpiryDefaultHours: 24,
		MaxActiveLinksPerOwner: 20,
		MaxActiveLinksPerFile:  5,
		CleanupDefaultDays:     7,
		CleanupMaxDays:         365,
		DefaultPageSize:        20,
		MaxPageSize:            100,
		CacheSize:              100,
		CacheTTL:               5 * time.Minute,
	}
}

// newTestFileService собирает FileService с моками.
func newTestFileService(files *mockFileRepo, store *mockStore) *FileService {
	return NewFileService(files, store, NewCacheService(100, 5*time.Minute), testConfig(), slog.Default())
}

// newTestLinkService собирает TempLinkService с моками.
func newTestLinkService(links *mockLinkRepo, files *mockFileRepo, store *mockStore) *TempLinkService {
	return NewTempLinkService(links, files, store, testConfig(), slog.Default())
}
