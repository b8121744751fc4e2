// files.go — сервис жизненного цикла файлов.
// Загрузка с дедупликацией по содержимому, списки, доступ по id,
// soft delete, активация, отметка проверки.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/boburshokhh/dormitory-files/internal/config"
	"github.com/boburshokhh/dormitory-files/internal/domain/category"
	"github.com/boburshokhh/dormitory-files/internal/domain/model"
	"github.com/boburshokhh/dormitory-files/internal/domain/rbac"
	"github.com/boburshokhh/dormitory-files/internal/repository"
	"github.com/boburshokhh/dormitory-files/internal/storage"
)

// Prometheus-метрики загрузки файлов.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dormfiles_uploads_total",
		Help: "Общее количество обработанных элементов загрузки (по исходу).",
	}, []string{"outcome"}) // outcome: accepted, duplicate, rejected

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormfiles_upload_bytes_total",
		Help: "Общее количество байт, записанных в объектное хранилище.",
	})
)

// UploadItem — один элемент пакетной загрузки.
type UploadItem struct {
	// Content — сырые байты файла
	Content []byte
	// OriginalName — оригинальное имя файла
	OriginalName string
	// FieldName — имя поля формы (выделенный слот: passport, avatar, …)
	FieldName string
	// ContentType — заявленный MIME-тип
	ContentType string
}

// UploadOptions — общие параметры пакетной загрузки.
type UploadOptions struct {
	// Category — явная категория, перекрывает классификатор (опционально)
	Category string
	// RelatedEntityType / RelatedEntityID — начальная привязка.
	// Пустые значения — привязка к собственной записи владельца.
	RelatedEntityType string
	RelatedEntityID   string
}

// AcceptedFile — успешно обработанный элемент загрузки.
type AcceptedFile struct {
	File *model.FileRecord
	// URL — временный URL скачивания (nil, если сгенерировать не удалось)
	URL *string
	// Duplicate — запись уже существовала, повторной загрузки не было
	Duplicate bool
}

// RejectedFile — отклонённый элемент загрузки.
type RejectedFile struct {
	OriginalName string
	Reason       string
}

// UploadReport — итог пакетной загрузки: сбой одного элемента
// не прерывает остальные.
type UploadReport struct {
	Accepted []AcceptedFile
	Rejected []RejectedFile
}

// FileWithURL — запись файла с опциональным URL скачивания.
type FileWithURL struct {
	File *model.FileRecord
	URL  *string
}

// FilePage — страница списка файлов.
type FilePage struct {
	Items []FileWithURL
	Total int
	Page  int
	Limit int
}

// FileService — сервис жизненного цикла файлов.
type FileService struct {
	files  repository.FileRepository
	store  storage.ObjectStore
	cache  *CacheService
	cfg    *config.Config
	logger *slog.Logger
}

// NewFileService создаёт сервис жизненного цикла файлов.
func NewFileService(
	files repository.FileRepository,
	store storage.ObjectStore,
	cache *CacheService,
	cfg *config.Config,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		files:  files,
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "file_service")),
	}
}

// UploadFiles выполняет пакетную загрузку.
//
// Для каждого элемента независимо:
//  1. SHA-256 по сырым байтам
//  2. Категория: явная из opts или классификатор
//  3. Поиск живого дубликата (владелец, хэш, категория) — при находке
//     возвращается существующая запись без повторной загрузки
//  4. Запись блоба в хранилище, затем вставка метаданных в статусе uploading
//
// Сбой элемента попадает в Rejected с причиной, остальные элементы
// обрабатываются дальше. Ошибка всего вызова — только при недопустимом
// пакете целиком или недоступности БД на предварительных проверках.
func (s *FileService) UploadFiles(ctx context.Context, items []UploadItem, opts UploadOptions, ownerID string) (*UploadReport, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: пакет загрузки пуст", ErrValidation)
	}
	if len(items) > s.cfg.MaxFilesPerBatch {
		return nil, fmt.Errorf("%w: в пакете %d файлов, максимум %d",
			ErrValidation, len(items), s.cfg.MaxFilesPerBatch)
	}
	if opts.Category != "" && !category.IsValid(opts.Category) {
		return nil, fmt.Errorf("%w: неизвестная категория %q", ErrValidation, opts.Category)
	}

	// Квота владельца считается один раз, принятые элементы добавляются локально
	usedBytes, err := s.files.SumLiveSizeByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	entityType, entityID := opts.RelatedEntityType, opts.RelatedEntityID
	if entityType == "" {
		entityType, entityID = model.EntityUser, ownerID
	}

	report := &UploadReport{}
	for _, item := range items {
		accepted, rejectReason := s.uploadOne(ctx, item, opts.Category, entityType, entityID, ownerID, usedBytes)
		if accepted == nil {
			uploadsTotal.WithLabelValues("rejected").Inc()
			report.Rejected = append(report.Rejected, RejectedFile{
				OriginalName: item.OriginalName,
				Reason:       rejectReason,
			})
			continue
		}

		if accepted.Duplicate {
			uploadsTotal.WithLabelValues("duplicate").Inc()
		} else {
			uploadsTotal.WithLabelValues("accepted").Inc()
			uploadBytesTotal.Add(float64(accepted.File.SizeBytes))
			usedBytes += accepted.File.SizeBytes
		}
		report.Accepted = append(report.Accepted, *accepted)
	}

	s.logger.Info("Пакетная загрузка завершена",
		slog.String("owner_id", ownerID),
		slog.Int("accepted", len(report.Accepted)),
		slog.Int("rejected", len(report.Rejected)),
	)

	return report, nil
}

// uploadOne обрабатывает один элемент пакета.
// Возвращает либо принятый файл, либо причину отклонения.
func (s *FileService) uploadOne(ctx context.Context, item UploadItem, declaredCategory, entityType, entityID, ownerID string, usedBytes int64) (*AcceptedFile, string) {
	if reason := s.validateItem(item, usedBytes); reason != "" {
		return nil, reason
	}

	sum := sha256.Sum256(item.Content)
	contentHash := hex.EncodeToString(sum[:])
	cat := category.Classify(declaredCategory, item.FieldName, item.OriginalName)

	// Дедупликация: повторная загрузка того же содержимого идемпотентна
	existing, err := s.files.FindLiveByContent(ctx, ownerID, contentHash, cat)
	if err == nil {
		return &AcceptedFile{File: existing, URL: s.presign(ctx, existing), Duplicate: true}, ""
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Sprintf("ошибка проверки дубликата: %v", err)
	}

	// Ключ объекта: владелец/категория/случайный UUID — перечисление ключей
	// извне невозможно
	ext := strings.ToLower(filepath.Ext(item.OriginalName))
	storageKey := fmt.Sprintf("%s/%s/%s%s", ownerID, cat, uuid.New().String(), ext)

	contentType := item.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	put, err := s.store.Put(ctx, storageKey, bytes.NewReader(item.Content), int64(len(item.Content)), contentType)
	if err != nil {
		return nil, fmt.Sprintf("ошибка записи в хранилище: %v", err)
	}

	f := &model.FileRecord{
		OwnerID:           ownerID,
		RelatedEntityType: entityType,
		RelatedEntityID:   entityID,
		OriginalName:      item.OriginalName,
		StorageKey:        storageKey,
		Category:          cat,
		MimeType:          contentType,
		SizeBytes:         int64(len(item.Content)),
		ContentHash:       contentHash,
		Status:            model.StatusUploading,
		Metadata:          map[string]string{"etag": put.ETag},
	}

	if err := s.files.Insert(ctx, f); err != nil {
		// Конкурентная загрузка того же содержимого: уникальный индекс
		// превратил гонку в «дубликат найден»
		if errors.Is(err, repository.ErrConflict) {
			existing, findErr := s.files.FindLiveByContent(ctx, ownerID, contentHash, cat)
			if findErr == nil {
				s.cleanupOrphanBlob(ctx, storageKey)
				return &AcceptedFile{File: existing, URL: s.presign(ctx, existing), Duplicate: true}, ""
			}
		}
		// Блоб без строки метаданных — допустимый исход, вычищается
		// внешней сборкой мусора хранилища
		s.logger.Error("Вставка метаданных не удалась, блоб остаётся без записи",
			slog.String("storage_key", storageKey),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Sprintf("ошибка сохранения метаданных: %v", err)
	}

	return &AcceptedFile{File: f, URL: s.presign(ctx, f)}, ""
}

// validateItem проверяет размер, расширение и квоту владельца.
// Возвращает причину отклонения или пустую строку.
func (s *FileService) validateItem(item UploadItem, usedBytes int64) string {
	size := int64(len(item.Content))
	if size == 0 {
		return "файл пуст"
	}
	if size > s.cfg.MaxFileSize {
		return fmt.Sprintf("размер файла %d байт превышает максимум %d", size, s.cfg.MaxFileSize)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(item.OriginalName), "."))
	for _, blocked := range s.cfg.BlockedExtensions {
		if ext == blocked {
			return fmt.Sprintf("тип файла .%s запрещён", ext)
		}
	}

	if usedBytes+size > s.cfg.MaxTotalSizePerOwner {
		return fmt.Sprintf("превышена квота владельца: занято %d байт из %d", usedBytes, s.cfg.MaxTotalSizePerOwner)
	}

	return ""
}

// GetUserFiles возвращает страницу живых файлов владельца.
// Некорректные page/limit приводятся к допустимым значениям, не к ошибке.
// URL скачивания генерируется для каждой строки best-effort: сбой одной
// строки не валит список.
func (s *FileService) GetUserFiles(ctx context.Context, ownerID string, category *string, page, limit int) (*FilePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	filters := repository.FileListFilters{
		OwnerID:  &ownerID,
		Category: category,
	}

	files, err := s.files.ListLive(ctx, filters, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	total, err := s.files.CountLive(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	result := &FilePage{Total: total, Page: page, Limit: limit}
	for _, f := range files {
		result.Items = append(result.Items, FileWithURL{File: f, URL: s.presign(ctx, f)})
	}
	return result, nil
}

// GetFileByID возвращает живую запись по id с проверкой доступа.
// Владелец читает всегда, остальным нужна повышенная роль.
// При incrementDownload счётчик скачиваний увеличивается атомарно в БД.
func (s *FileService) GetFileByID(ctx context.Context, fileID, requesterID, requesterRole string, incrementDownload bool) (*model.FileRecord, error) {
	f, err := s.getCached(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if f.OwnerID != requesterID && !rbac.CanActOnForeignResource(requesterRole) {
		return nil, fmt.Errorf("%w: файл принадлежит другому пользователю", ErrPermissionDenied)
	}

	if incrementDownload {
		if err := s.files.IncrementDownloadCount(ctx, fileID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		s.cache.Delete(fileID)
		f.DownloadCount++
	}

	return f, nil
}

// DeleteFile выполняет soft delete с проверкой доступа.
// Источник истины — метаданные: удаление блоба best-effort, его сбой
// логируется и не откатывает удаление записи.
func (s *FileService) DeleteFile(ctx context.Context, fileID, requesterID, requesterRole string) error {
	f, err := s.getCached(ctx, fileID)
	if err != nil {
		return err
	}

	if f.OwnerID != requesterID && !rbac.CanActOnForeignResource(requesterRole) {
		return fmt.Errorf("%w: файл принадлежит другому пользователю", ErrPermissionDenied)
	}

	if err := s.files.SoftDelete(ctx, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.cache.Delete(fileID)

	s.cleanupOrphanBlob(ctx, f.StorageKey)

	s.logger.Info("Файл помечен как удалённый",
		slog.String("file_id", fileID),
		slog.String("owner_id", f.OwnerID),
	)
	return nil
}

// ActivateFiles атомарно переводит набор файлов владельца в active
// и перепривязывает к бизнес-сущности. Частичная активация запрещена:
// при несовпадении набора не меняется ни одна строка.
func (s *FileService) ActivateFiles(ctx context.Context, fileIDs []string, ownerID, entityType, entityID string) error {
	if len(fileIDs) == 0 {
		return fmt.Errorf("%w: пустой список файлов", ErrValidation)
	}
	for _, id := range fileIDs {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("%w: некорректный идентификатор файла %q", ErrValidation, id)
		}
	}
	switch entityType {
	case model.EntityUser, model.EntityApplication, model.EntityContract:
	default:
		return fmt.Errorf("%w: неизвестный тип сущности %q", ErrValidation, entityType)
	}
	if entityID == "" {
		return fmt.Errorf("%w: не указан идентификатор сущности", ErrValidation)
	}

	n, err := s.files.ActivateOwned(ctx, fileIDs, ownerID, entityType, entityID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if n != len(fileIDs) {
		// Диагностика несовпадения: сколько из запрошенных — живые файлы владельца
		found, countErr := s.files.CountLiveOwned(ctx, fileIDs, ownerID)
		if countErr != nil {
			found = n
		}
		return fmt.Errorf("%w: запрошено файлов %d, доступно для активации %d",
			ErrBusinessRule, len(fileIDs), found)
	}

	for _, id := range fileIDs {
		s.cache.Delete(id)
	}

	s.logger.Info("Файлы активированы",
		slog.Int("count", n),
		slog.String("owner_id", ownerID),
		slog.String("entity_type", entityType),
		slog.String("entity_id", entityID),
	)
	return nil
}

// VerifyFile ставит или снимает административную отметку проверки.
// Только повышенная роль, только активные живые записи.
func (s *FileService) VerifyFile(ctx context.Context, fileID, requesterRole, requesterID string, verified bool) error {
	if !rbac.CanActOnForeignResource(requesterRole) {
		return fmt.Errorf("%w: отметка проверки доступна только повышенной роли", ErrPermissionDenied)
	}

	if err := s.files.SetVerified(ctx, fileID, verified, requesterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: активный файл не найден", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.cache.Delete(fileID)

	s.logger.Info("Отметка проверки обновлена",
		slog.String("file_id", fileID),
		slog.Bool("verified", verified),
		slog.String("verified_by", requesterID),
	)
	return nil
}

// getCached возвращает живую запись из кэша или БД.
func (s *FileService) getCached(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if f, ok := s.cache.Get(fileID); ok {
		return f, nil
	}

	f, err := s.files.GetLiveByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.cache.Set(fileID, f)
	return f, nil
}

// presign генерирует временный URL скачивания best-effort.
// При сбое возвращает nil — вызывающий отдаёт запись без URL.
func (s *FileService) presign(ctx context.Context, f *model.FileRecord) *string {
	u, err := s.store.PresignedURL(ctx, f.StorageKey, f.OriginalName, s.cfg.PresignTTL)
	if err != nil {
		s.logger.Warn("Не удалось сгенерировать presigned URL",
			slog.String("file_id", f.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return &u
}

// cleanupOrphanBlob удаляет блоб best-effort: метаданные — источник истины,
// осиротевший блоб восстановим внешней выверкой хранилища.
func (s *FileService) cleanupOrphanBlob(ctx context.Context, storageKey string) {
	if err := s.store.Delete(ctx, storageKey); err != nil {
		s.logger.Warn("Не удалось удалить блоб, объект остаётся в хранилище",
			slog.String("storage_key", storageKey),
			slog.String("error", err.Error()),
		)
	}
}
