package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boburshokhh/dormitory-files/internal/domain/category"
	"github.com/boburshokhh/dormitory-files/internal/domain/model"
	"github.com/boburshokhh/dormitory-files/internal/domain/rbac"
	"github.com/boburshokhh/dormitory-files/internal/repository"
	"github.com/boburshokhh/dormitory-files/internal/storage"
)

const testOwner = "user-42"

// --- UploadFiles ---

// TestUploadFiles_Accept проверяет успешную загрузку одного файла.
func TestUploadFiles_Accept(t *testing.T) {
	var inserted *model.FileRecord
	files := &mockFileRepo{
		insertFn: func(_ context.Context, f *model.FileRecord) error {
			f.ID = "00000000-0000-0000-0000-000000000001"
			inserted = f
			return nil
		},
	}
	svc := newTestFileService(files, &mockStore{})

	content := []byte("passport scan content")
	report, err := svc.UploadFiles(context.Background(), []UploadItem{
		{Content: content, OriginalName: "scan.jpg", FieldName: "passport", ContentType: "image/jpeg"},
	}, UploadOptions{}, testOwner)
	if err != nil {
		t.Fatalf("UploadFiles ошибка: %v", err)
	}

	if len(report.Accepted) != 1 || len(report.Rejected) != 0 {
		t.Fatalf("Accepted/Rejected = %d/%d, ожидалось 1/0", len(report.Accepted), len(report.Rejected))
	}

	acc := report.Accepted[0]
	if acc.Duplicate {
		t.Error("Duplicate = true, ожидался false")
	}
	if acc.URL == nil {
		t.Error("URL = nil, ожидался presigned URL")
	}

	sum := sha256.Sum256(content)
	if inserted.ContentHash != hex.EncodeToString(sum[:]) {
		t.Errorf("ContentHash = %q, не совпадает с SHA-256 содержимого", inserted.ContentHash)
	}
	if inserted.Category != category.CategoryPassport {
		t.Errorf("Category = %q, ожидалось passport (слот формы)", inserted.Category)
	}
	if inserted.Status != model.StatusUploading {
		t.Errorf("Status = %q, ожидалось uploading", inserted.Status)
	}
	if inserted.OwnerID != testOwner {
		t.Errorf("OwnerID = %q, ожидалось %q", inserted.OwnerID, testOwner)
	}
	if inserted.StorageKey == "scan.jpg" || inserted.StorageKey == "" {
		t.Errorf("StorageKey = %q, ожидался непредсказуемый ключ", inserted.StorageKey)
	}
	if !strings.HasPrefix(inserted.StorageKey, testOwner+"/passport/") {
		t.Errorf("StorageKey = %q, ожидался префикс владелец/категория", inserted.StorageKey)
	}
	// До активации файл привязан к записи владельца
	if inserted.RelatedEntityType != model.EntityUser || inserted.RelatedEntityID != testOwner {
		t.Errorf("RelatedEntity = %s/%s, ожидалось user/%s",
			inserted.RelatedEntityType, inserted.RelatedEntityID, testOwner)
	}
}

// TestUploadFiles_DuplicateIdempotent проверяет идемпотентность повторной
// загрузки: существующая живая запись возвращается без записи блоба.
func TestUploadFiles_DuplicateIdempotent(t *testing.T) {
	existing := &model.FileRecord{
		ID:      "00000000-0000-0000-0000-00000000000e",
		OwnerID: testOwner, Status: model.StatusActive,
		StorageKey: "user-42/document/old-key.pdf",
	}
	files := &mockFileRepo{
		findLiveByContentFn: func(_ context.Context, _, _, _ string) (*model.FileRecord, error) {
			return existing, nil
		},
		insertFn: func(_ context.Context, _ *model.FileRecord) error {
			t.Fatal("Insert не должен вызываться для дубликата")
			return nil
		},
	}
	store := &mockStore{
		putFn: func(_ context.Context, _ string, _ io.Reader, _ int64, _ string) (*storage.PutResult, error) {
			t.Fatal("Put не должен вызываться для дубликата")
			return nil, nil
		},
	}
	svc := newTestFileService(files, store)

	report, err := svc.UploadFiles(context.Background(), []UploadItem{
		{Content: []byte("same content"), OriginalName: "doc.pdf"},
	}, UploadOptions{}, testOwner)
	if err != nil {
		t.Fatalf("UploadFiles ошибка: %v", err)
	}

	if len(report.Accepted) != 1 {
		t.Fatalf("Accepted = %d, ожидался 1", len(report.Accepted))
	}
	if !report.Accepted[0].Duplicate {
		t.Error("Duplicate = false, ожидался true")
	}
	if report.Accepted[0].File.ID != existing.ID {
		t.Errorf("File.ID = %q, ожидалась существующая запись", report.Accepted[0].File.ID)
	}
}

// TestUploadFiles_ConflictFallback проверяет гонку конкурентных загрузок:
// ErrConflict при вставке превращается в «дубликат найден».
func TestUploadFiles_ConflictFallback(t *testing.T) {
	existing := &model.FileRecord{ID: "00000000-0000-0000-0000-00000000000e", OwnerID: testOwner}
	firstLookup := true
	files := &mockFileRepo{
		findLiveByContentFn: func(_ context.Context, _, _, _ string) (*model.FileRecord, error) {
			// Первый поиск до вставки: дубликата ещё нет
			if firstLookup {
				firstLookup = false
				return nil, repository.ErrNotFound
			}
			// Повторный поиск после конфликта: конкурент успел вставить
			return existing, nil
		},
		insertFn: func(_ context.Context, _ *model.FileRecord) error {
			return fmt.Errorf("%w: живой файл с таким содержимым уже зарегистрирован", repository.ErrConflict)
		},
	}
	var deletedKey string
	store := &mockStore{
		deleteFn: func(_ context.Context, key string) error {
			deletedKey = key
			return nil
		},
	}
	svc := newTestFileService(files, store)

	report, err := svc.UploadFiles(context.Background(), []UploadItem{
		{Content: []byte("racing content"), OriginalName: "doc.pdf"},
	}, UploadOptions{}, testOwner)
	if err != nil {
		t.Fatalf("UploadFiles ошибка: %v", err)
	}

	if len(report.Accepted) != 1 || !report.Accepted[0].Duplicate {
		t.Fatalf("ожидался принятый дубликат, получено %+v", report)
	}
	// Проигравший гонку блоб удаляется
	if deletedKey == "" {
		t.Error("осиротевший блоб не был удалён")
	}
}

// TestUploadFiles_PartialBatch проверяет изоляцию сбоев внутри пакета:
// отклонение одних элементов не мешает остальным.
func TestUploadFiles_PartialBatch(t *testing.T) {
	files := &mockFileRepo{}
	store := &mockStore{
		putFn: func(_ context.Context, key string, _ io.Reader, _ int64, _ string) (*storage.PutResult, error) {
			if strings.Contains(key, "photo") {
				return nil, errors.New("connection refused")
			}
			return &storage.PutResult{ETag: "etag"}, nil
		},
	}
	svc := newTestFileService(files, store)

	report, err := svc.UploadFiles(context.Background(), []UploadItem{
		{Content: []byte("ok document"), OriginalName: "a.pdf"},
		{Content: []byte("virus"), OriginalName: "malware.exe"},
		{Content: []byte("photo bytes"), OriginalName: "b.jpg"},
		{Content: []byte("another ok"), OriginalName: "c.pdf"},
	}, UploadOptions{}, testOwner)
	if err != nil {
		t.Fatalf("UploadFiles ошибка: %v", err)
	}

	if len(report.Accepted) != 2 {
		t.Errorf("Accepted = %d, ожидалось 2", len(report.Accepted))
	}
	if len(report.Rejected) != 2 {
		t.Fatalf("Rejected = %d, ожидалось 2", len(report.Rejected))
	}
	for _, r := range report.Rejected {
		if r.Reason == "" {
			t.Errorf("Rejected %q без причины", r.OriginalName)
		}
	}
}

// TestUploadFiles_Validation проверяет отклонение недопустимых элементов.
func TestUploadFiles_Validation(t *testing.T) {
	tests := []struct {
		name string
		item UploadItem
	}{
		{"пустой файл", UploadItem{Content: nil, OriginalName: "empty.pdf"}},
		{"запрещённое расширение", UploadItem{Content: []byte("x"), OriginalName: "run.EXE"}},
		{"превышение размера", UploadItem{Content: make([]byte, (20<<20)+1), OriginalName: "big.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestFileService(&mockFileRepo{}, &mockStore{})

			report, err := svc.UploadFiles(context.Background(), []UploadItem{tt.item}, UploadOptions{}, testOwner)
			if err != nil {
				t.Fatalf("UploadFiles ошибка: %v", err)
			}
			if len(report.Rejected) != 1 || len(report.Accepted) != 0 {
				t.Errorf("Accepted/Rejected = %d/%d, ожидалось 0/1",
					len(report.Accepted), len(report.Rejected))
			}
		})
	}
}

// TestUploadFiles_OwnerQuota проверяет квоту владельца с учётом
// уже принятых элементов пакета.
func TestUploadFiles_OwnerQuota(t *testing.T) {
	files := &mockFileRepo{
		sumLiveSizeFn: func(_ context.Context, _ string) (int64, error) {
			return (500 << 20) - 15, nil // осталось 15 байт квоты
		},
	}
	svc := newTestFileService(files, &mockStore{})

	report, err := svc.UploadFiles(context.Background(), []UploadItem{
		{Content: []byte("ten bytes."), OriginalName: "a.pdf"}, // 10 байт — проходит
		{Content: []byte("ten bytes."), OriginalName: "b.pdf"}, // ещё 10 — уже не помещается
	}, UploadOptions{}, testOwner)
	if err != nil {
		t.Fatalf("UploadFiles ошибка: %v", err)
	}

	if len(report.Accepted) != 1 {
		t.Errorf("Accepted = %d, ожидался 1", len(report.Accepted))
	}
	if len(report.Rejected) != 1 {
		t.Fatalf("Rejected = %d, ожидался 1", len(report.Rejected))
	}
	if !strings.Contains(report.Rejected[0].Reason, "квота") {
		t.Errorf("Reason = %q, ожидалось упоминание квоты", report.Rejected[0].Reason)
	}
}

// TestUploadFiles_BatchLimits проверяет отклонение недопустимого пакета целиком.
func TestUploadFiles_BatchLimits(t *testing.T) {
	svc := newTestFileService(&mockFileRepo{}, &mockStore{})

	if _, err := svc.UploadFiles(context.Background(), nil, UploadOptions{}, testOwner); !errors.Is(err, ErrValidation) {
		t.Errorf("пустой пакет: err = %v, ожидался ErrValidation", err)
	}

	items := make([]UploadItem, 11)
	for i := range items {
		items[i] = UploadItem{Content: []byte("x"), OriginalName: fmt.Sprintf("f%d.pdf", i)}
	}
	if _, err := svc.UploadFiles(context.Background(), items, UploadOptions{}, testOwner); !errors.Is(err, ErrValidation) {
		t.Errorf("слишком большой пакет: err = %v, ожидался ErrValidation", err)
	}

	if _, err := svc.UploadFiles(context.Background(), []UploadItem{{Content: []byte("x"), OriginalName: "a.pdf"}},
		UploadOptions{Category: "bogus"}, testOwner); !errors.Is(err, ErrValidation) {
		t.Errorf("неизвестная категория: err = %v, ожидался ErrValidation", err)
	}
}

// TestUploadFiles_ExplicitCategory проверяет приоритет явной категории.
func TestUploadFiles_ExplicitCategory(t *testing.T) {
	var inserted *model.FileRecord
	files := &mockFileRepo{
		insertFn: func(_ context.Context, f *model.FileRecord) error {
			inserted = f
			return nil
		},
	}
	svc := newTestFileService(files, &mockStore{})

	_, err := svc.UploadFiles(context.Background(), []UploadItem{
		{Content: []byte("scan"), OriginalName: "photo.jpg"},
	}, UploadOptions{Category: category.CategoryContract}, testOwner)
	if err != nil {
		t.Fatalf("UploadFiles ошибка: %v", err)
	}
	if inserted.Category != category.CategoryContract {
		t.Errorf("Category = %q, явная категория должна перекрывать расширение", inserted.Category)
	}
}

// --- GetUserFiles ---

// TestGetUserFiles_PaginationClamping проверяет приведение некорректной
// пагинации к допустимым значениям.
func TestGetUserFiles_PaginationClamping(t *testing.T) {
	tests := []struct {
		name           string
		page, limit    int
		expectedPage   int
		expectedLimit  int
		expectedOffset int
	}{
		{"нулевые значения", 0, 0, 1, 20, 0},
		{"отрицательные значения", -5, -1, 1, 20, 0},
		{"limit выше максимума", 2, 1000, 2, 100, 100},
		{"корректные значения", 3, 10, 3, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit, gotOffset int
			files := &mockFileRepo{
				listLiveFn: func(_ context.Context, _ repository.FileListFilters, limit, offset int) ([]*model.FileRecord, error) {
					gotLimit, gotOffset = limit, offset
					return nil, nil
				},
			}
			svc := newTestFileService(files, &mockStore{})

			page, err := svc.GetUserFiles(context.Background(), testOwner, nil, tt.page, tt.limit)
			if err != nil {
				t.Fatalf("GetUserFiles ошибка: %v", err)
			}
			if page.Page != tt.expectedPage || page.Limit != tt.expectedLimit {
				t.Errorf("Page/Limit = %d/%d, ожидалось %d/%d",
					page.Page, page.Limit, tt.expectedPage, tt.expectedLimit)
			}
			if gotLimit != tt.expectedLimit || gotOffset != tt.expectedOffset {
				t.Errorf("repo limit/offset = %d/%d, ожидалось %d/%d",
					gotLimit, gotOffset, tt.expectedLimit, tt.expectedOffset)
			}
		})
	}
}

// TestGetUserFiles_PresignBestEffort проверяет, что сбой генерации URL
// одной строки не валит список.
func TestGetUserFiles_PresignBestEffort(t *testing.T) {
	files := &mockFileRepo{
		listLiveFn: func(_ context.Context, _ repository.FileListFilters, _, _ int) ([]*model.FileRecord, error) {
			return []*model.FileRecord{
				{ID: "f1", StorageKey: "ok-key"},
				{ID: "f2", StorageKey: "broken-key"},
			}, nil
		},
		countLiveFn: func(_ context.Context, _ repository.FileListFilters) (int, error) {
			return 2, nil
		},
	}
	store := &mockStore{
		presignedURLFn: func(_ context.Context, key, _ string, _ time.Duration) (string, error) {
			if key == "broken-key" {
				return "", errors.New("signing error")
			}
			return "https://storage.example.com/" + key, nil
		},
	}
	svc := newTestFileService(files, store)

	page, err := svc.GetUserFiles(context.Background(), testOwner, nil, 1, 20)
	if err != nil {
		t.Fatalf("GetUserFiles ошибка: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("Items = %d, ожидалось 2", len(page.Items))
	}
	if page.Items[0].URL == nil {
		t.Error("Items[0].URL = nil, ожидался URL")
	}
	if page.Items[1].URL != nil {
		t.Error("Items[1].URL != nil, ожидался nil при сбое подписи")
	}
}

// --- GetFileByID ---

// TestGetFileByID_Access проверяет матрицу доступа: владелец и повышенные
// роли читают, чужой студент — нет.
func TestGetFileByID_Access(t *testing.T) {
	record := &model.FileRecord{ID: "f1", OwnerID: testOwner, Status: model.StatusActive}

	tests := []struct {
		name        string
		requesterID string
		role        string
		wantErr     error
	}{
		{"владелец", testOwner, rbac.RoleStudent, nil},
		{"чужой студент", "user-99", rbac.RoleStudent, ErrPermissionDenied},
		{"менеджер", "user-99", rbac.RoleManager, nil},
		{"админ", "user-99", rbac.RoleAdmin, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := &mockFileRepo{
				getLiveByIDFn: func(_ context.Context, _ string) (*model.FileRecord, error) {
					return record, nil
				},
			}
			svc := newTestFileService(files, &mockStore{})

			_, err := svc.GetFileByID(context.Background(), "f1", tt.requesterID, tt.role, false)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, ожидался %v", err, tt.wantErr)
			}
		})
	}
}

// TestGetFileByID_NotFound проверяет маппинг отсутствующей записи.
func TestGetFileByID_NotFound(t *testing.T) {
	svc := newTestFileService(&mockFileRepo{}, &mockStore{})

	_, err := svc.GetFileByID(context.Background(), "missing", testOwner, rbac.RoleStudent, false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, ожидался ErrNotFound", err)
	}
}

// TestGetFileByID_IncrementDownload проверяет атомарный инкремент счётчика.
func TestGetFileByID_IncrementDownload(t *testing.T) {
	incremented := false
	files := &mockFileRepo{
		getLiveByIDFn: func(_ context.Context, _ string) (*model.FileRecord, error) {
			return &model.FileRecord{ID: "f1", OwnerID: testOwner, DownloadCount: 3}, nil
		},
		incrementDownloadFn: func(_ context.Context, fileID string) error {
			incremented = true
			return nil
		},
	}
	svc := newTestFileService(files, &mockStore{})

	f, err := svc.GetFileByID(context.Background(), "f1", testOwner, rbac.RoleStudent, true)
	if err != nil {
		t.Fatalf("GetFileByID ошибка: %v", err)
	}
	if !incremented {
		t.Error("IncrementDownloadCount не вызван")
	}
	if f.DownloadCount != 4 {
		t.Errorf("DownloadCount = %d, ожидалось 4", f.DownloadCount)
	}
}

// TestGetFileByID_ConcurrentReaders гоняет конкурентные чтения одного файла
// с инкрементом и без. Записи из кэша — копии, поэтому инкремент одного
// вызова не виден другим читателям и не гонится с ними (проверяется под -race).
func TestGetFileByID_ConcurrentReaders(t *testing.T) {
	files := &mockFileRepo{
		getLiveByIDFn: func(_ context.Context, _ string) (*model.FileRecord, error) {
			return &model.FileRecord{ID: "f1", OwnerID: testOwner, DownloadCount: 3}, nil
		},
		incrementDownloadFn: func(_ context.Context, _ string) error { return nil },
	}
	svc := newTestFileService(files, &mockStore{})

	// Прогреваем кэш, чтобы все горутины делили одну запись.
	if _, err := svc.GetFileByID(context.Background(), "f1", testOwner, rbac.RoleStudent, false); err != nil {
		t.Fatalf("прогрев кэша: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		increment := i%2 == 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := svc.GetFileByID(context.Background(), "f1", testOwner, rbac.RoleStudent, increment)
			if err != nil {
				t.Errorf("GetFileByID ошибка: %v", err)
				return
			}
			want := int64(3)
			if increment {
				want = 4
			}
			if f.DownloadCount != want {
				t.Errorf("DownloadCount = %d, ожидалось %d", f.DownloadCount, want)
			}
		}()
	}
	wg.Wait()
}

// --- DeleteFile ---

// TestDeleteFile_BlobFailureSwallowed проверяет, что сбой удаления блоба
// не откатывает soft delete: метаданные — источник истины.
func TestDeleteFile_BlobFailureSwallowed(t *testing.T) {
	softDeleted := false
	files := &mockFileRepo{
		getLiveByIDFn: func(_ context.Context, _ string) (*model.FileRecord, error) {
			return &model.FileRecord{ID: "f1", OwnerID: testOwner, StorageKey: "k"}, nil
		},
		softDeleteFn: func(_ context.Context, _ string) error {
			softDeleted = true
			return nil
		},
	}
	store := &mockStore{
		deleteFn: func(_ context.Context, _ string) error {
			return errors.New("storage unavailable")
		},
	}
	svc := newTestFileService(files, store)

	if err := svc.DeleteFile(context.Background(), "f1", testOwner, rbac.RoleStudent); err != nil {
		t.Fatalf("DeleteFile ошибка: %v", err)
	}
	if !softDeleted {
		t.Error("SoftDelete не вызван")
	}
}

// TestDeleteFile_ForeignDenied проверяет запрет удаления чужого файла.
func TestDeleteFile_ForeignDenied(t *testing.T) {
	files := &mockFileRepo{
		getLiveByIDFn: func(_ context.Context, _ string) (*model.FileRecord, error) {
			return &model.FileRecord{ID: "f1", OwnerID: testOwner}, nil
		},
		softDeleteFn: func(_ context.Context, _ string) error {
			t.Fatal("SoftDelete не должен вызываться")
			return nil
		},
	}
	svc := newTestFileService(files, &mockStore{})

	err := svc.DeleteFile(context.Background(), "f1", "user-99", rbac.RoleStudent)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, ожидался ErrPermissionDenied", err)
	}
}

// --- ActivateFiles ---

// TestActivateFiles_AllOrNothing проверяет отказ при несовпадении набора:
// ни одна строка не активируется, ошибка называет числа.
func TestActivateFiles_AllOrNothing(t *testing.T) {
	ids := []string{
		"00000000-0000-0000-0000-000000000001",
		"00000000-0000-0000-0000-000000000002",
		"00000000-0000-0000-0000-000000000003",
	}
	files := &mockFileRepo{
		activateOwnedFn: func(_ context.Context, fileIDs []string, _, _, _ string) (int, error) {
			return 0, nil // условный UPDATE не совпал
		},
		countLiveOwnedFn: func(_ context.Context, _ []string, _ string) (int, error) {
			return 2, nil // живых файлов владельца только два
		},
	}
	svc := newTestFileService(files, &mockStore{})

	err := svc.ActivateFiles(context.Background(), ids, testOwner, model.EntityApplication, "app-7")
	if !errors.Is(err, ErrBusinessRule) {
		t.Fatalf("err = %v, ожидался ErrBusinessRule", err)
	}
	if !strings.Contains(err.Error(), "3") || !strings.Contains(err.Error(), "2") {
		t.Errorf("ошибка не называет запрошенное и найденное количество: %v", err)
	}
}

// TestActivateFiles_Success проверяет успешную активацию.
func TestActivateFiles_Success(t *testing.T) {
	ids := []string{"00000000-0000-0000-0000-000000000001"}
	var gotEntityType, gotEntityID string
	files := &mockFileRepo{
		activateOwnedFn: func(_ context.Context, fileIDs []string, _, entityType, entityID string) (int, error) {
			gotEntityType, gotEntityID = entityType, entityID
			return len(fileIDs), nil
		},
	}
	svc := newTestFileService(files, &mockStore{})

	if err := svc.ActivateFiles(context.Background(), ids, testOwner, model.EntityContract, "contract-1"); err != nil {
		t.Fatalf("ActivateFiles ошибка: %v", err)
	}
	if gotEntityType != model.EntityContract || gotEntityID != "contract-1" {
		t.Errorf("привязка = %s/%s, ожидалось contract/contract-1", gotEntityType, gotEntityID)
	}
}

// TestActivateFiles_Validation проверяет валидацию входа.
func TestActivateFiles_Validation(t *testing.T) {
	svc := newTestFileService(&mockFileRepo{}, &mockStore{})
	valid := "00000000-0000-0000-0000-000000000001"

	tests := []struct {
		name       string
		ids        []string
		entityType string
		entityID   string
	}{
		{"пустой список", nil, model.EntityUser, "u1"},
		{"не UUID", []string{"not-a-uuid"}, model.EntityUser, "u1"},
		{"неизвестный тип сущности", []string{valid}, "room", "r1"},
		{"пустой идентификатор сущности", []string{valid}, model.EntityUser, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ActivateFiles(context.Background(), tt.ids, testOwner, tt.entityType, tt.entityID)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, ожидался ErrValidation", err)
			}
		})
	}
}

// --- VerifyFile ---

// TestVerifyFile_RoleCheck проверяет, что отметка проверки доступна
// только повышенной роли.
func TestVerifyFile_RoleCheck(t *testing.T) {
	files := &mockFileRepo{}
	svc := newTestFileService(files, &mockStore{})

	err := svc.VerifyFile(context.Background(), "f1", rbac.RoleStudent, testOwner, true)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("студент: err = %v, ожидался ErrPermissionDenied", err)
	}

	if err := svc.VerifyFile(context.Background(), "f1", rbac.RoleManager, "mgr-1", true); err != nil {
		t.Errorf("менеджер: неожиданная ошибка %v", err)
	}
}

// TestVerifyFile_NotActive проверяет маппинг ErrNotFound: отметка
// ставится только на активные живые записи.
func TestVerifyFile_NotActive(t *testing.T) {
	files := &mockFileRepo{
		setVerifiedFn: func(_ context.Context, _ string, _ bool, _ string) error {
			return repository.ErrNotFound
		},
	}
	svc := newTestFileService(files, &mockStore{})

	err := svc.VerifyFile(context.Background(), "f1", rbac.RoleAdmin, "adm-1", true)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, ожидался ErrNotFound", err)
	}
}
