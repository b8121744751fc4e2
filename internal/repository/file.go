package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/boburshokhh/dormitory-files/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const fileColumns = `id, owner_id, related_entity_type, related_entity_id,
	original_name, storage_key, category, mime_type, size_bytes, content_hash,
	status, is_verified, verified_by, verified_at, download_count, metadata,
	created_at, updated_at, deleted_at`

// FileListFilters — фильтры для списка файлов владельца.
// Все поля — указатели, nil = фильтр не применяется.
type FileListFilters struct {
	// OwnerID — фильтр по владельцу (exact match)
	OwnerID *string
	// Category — фильтр по категории файла
	Category *string
	// Status — фильтр по статусу (в пределах живых записей)
	Status *string
}

// FileRepository — интерфейс доступа к таблице files.
type FileRepository interface {
	// Insert создаёт запись файла. Конфликт частичного уникального индекса
	// (владелец, хэш, категория) среди живых записей возвращается как ErrConflict.
	Insert(ctx context.Context, f *model.FileRecord) error
	// GetLiveByID возвращает живую запись по UUID или ErrNotFound.
	GetLiveByID(ctx context.Context, fileID string) (*model.FileRecord, error)
	// FindLiveByContent ищет живую запись по (владелец, хэш, категория) — дедупликация.
	FindLiveByContent(ctx context.Context, ownerID, contentHash, category string) (*model.FileRecord, error)
	// ListLive возвращает живые записи с фильтрацией и пагинацией.
	ListLive(ctx context.Context, filters FileListFilters, limit, offset int) ([]*model.FileRecord, error)
	// CountLive возвращает количество живых записей с фильтрацией.
	CountLive(ctx context.Context, filters FileListFilters) (int, error)
	// SumLiveSizeByOwner возвращает суммарный размер живых файлов владельца (байт).
	SumLiveSizeByOwner(ctx context.Context, ownerID string) (int64, error)
	// IncrementDownloadCount увеличивает счётчик скачиваний живой записи на 1.
	IncrementDownloadCount(ctx context.Context, fileID string) error
	// SoftDelete помечает живую запись удалённой (status → deleted, deleted_at).
	SoftDelete(ctx context.Context, fileID string) error
	// ActivateOwned атомарно переводит все перечисленные живые файлы владельца
	// в active и перепривязывает к бизнес-сущности. Частичная активация
	// невозможна: при несовпадении набора не изменяется ни одна строка.
	// Возвращает количество активированных строк (0 при несовпадении).
	ActivateOwned(ctx context.Context, fileIDs []string, ownerID, entityType, entityID string) (int, error)
	// CountLiveOwned возвращает, сколько из перечисленных файлов — живые записи владельца.
	CountLiveOwned(ctx context.Context, fileIDs []string, ownerID string) (int, error)
	// SetVerified обновляет отметку проверки у активной живой записи.
	SetVerified(ctx context.Context, fileID string, verified bool, verifiedBy string) error
	// ListStaleUploading возвращает живые записи в статусе uploading старше cutoff.
	ListStaleUploading(ctx context.Context, cutoff time.Time) ([]*model.FileRecord, error)
	// ListLiveDuplicates возвращает живые записи-дубликаты: в каждой группе
	// (владелец, хэш, категория) все строки, кроме самой ранней.
	ListLiveDuplicates(ctx context.Context) ([]*model.FileRecord, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// scanFile сканирует одну строку результата в FileRecord.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.RelatedEntityType, &f.RelatedEntityID,
		&f.OriginalName, &f.StorageKey, &f.Category, &f.MimeType, &f.SizeBytes, &f.ContentHash,
		&f.Status, &f.IsVerified, &f.VerifiedBy, &f.VerifiedAt, &f.DownloadCount, &f.Metadata,
		&f.CreatedAt, &f.UpdatedAt, &f.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *fileRepo) Insert(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (owner_id, related_entity_type, related_entity_id,
			original_name, storage_key, category, mime_type, size_bytes, content_hash,
			status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.OwnerID, f.RelatedEntityType, f.RelatedEntityID,
		f.OriginalName, f.StorageKey, f.Category, f.MimeType, f.SizeBytes, f.ContentHash,
		f.Status, f.Metadata,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: живой файл с таким содержимым уже зарегистрирован", ErrConflict)
		}
		return fmt.Errorf("ошибка вставки файла: %w", err)
	}
	return nil
}

func (r *fileRepo) GetLiveByID(ctx context.Context, fileID string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1 AND %s`, fileColumns, liveCond)

	f, err := scanFile(r.db.QueryRow(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

func (r *fileRepo) FindLiveByContent(ctx context.Context, ownerID, contentHash, category string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM files
		WHERE owner_id = $1 AND content_hash = $2 AND category = $3 AND %s`,
		fileColumns, liveCond)

	f, err := scanFile(r.db.QueryRow(ctx, query, ownerID, contentHash, category))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска файла по содержимому: %w", err)
	}
	return f, nil
}

// buildFileWhere строит WHERE-условие (поверх liveCond) и аргументы для фильтрации.
func buildFileWhere(filters FileListFilters, startArg int) (string, []any) {
	conditions := []string{liveCond}
	var args []any
	argNum := startArg

	if filters.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argNum))
		args = append(args, *filters.OwnerID)
		argNum++
	}
	if filters.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, *filters.Category)
		argNum++
	}
	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filters.Status)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *fileRepo) ListLive(ctx context.Context, filters FileListFilters, limit, offset int) ([]*model.FileRecord, error) {
	where, args := buildFileWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s FROM files
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, fileColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func (r *fileRepo) CountLive(ctx context.Context, filters FileListFilters) (int, error) {
	where, args := buildFileWhere(filters, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM files %s`, where)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return count, nil
}

func (r *fileRepo) SumLiveSizeByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(size_bytes), 0) FROM files
		WHERE owner_id = $1 AND %s`, liveCond)

	var total int64
	if err := r.db.QueryRow(ctx, query, ownerID).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта объёма файлов владельца: %w", err)
	}
	return total, nil
}

func (r *fileRepo) IncrementDownloadCount(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`
		UPDATE files
		SET download_count = download_count + 1
		WHERE id = $1 AND %s`, liveCond)

	tag, err := r.db.Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("ошибка инкремента счётчика скачиваний: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) SoftDelete(ctx context.Context, fileID string) error {
	query := fmt.Sprintf(`
		UPDATE files
		SET status = 'deleted', deleted_at = now()
		WHERE id = $1 AND %s`, liveCond)

	tag, err := r.db.Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("ошибка soft delete файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActivateOwned — один условный UPDATE: строки меняются только если ВСЕ
// перечисленные файлы — живые записи владельца. Проверка количества входит
// в сам запрос, поэтому частичная активация исключена без явной транзакции.
func (r *fileRepo) ActivateOwned(ctx context.Context, fileIDs []string, ownerID, entityType, entityID string) (int, error) {
	query := fmt.Sprintf(`
		UPDATE files
		SET status = 'active', related_entity_type = $3, related_entity_id = $4
		WHERE id = ANY($1::uuid[]) AND owner_id = $2 AND %s
			AND (SELECT COUNT(*) FROM files
				WHERE id = ANY($1::uuid[]) AND owner_id = $2 AND %s) = $5`,
		liveCond, liveCond)

	tag, err := r.db.Exec(ctx, query, fileIDs, ownerID, entityType, entityID, len(fileIDs))
	if err != nil {
		return 0, fmt.Errorf("ошибка активации файлов: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *fileRepo) CountLiveOwned(ctx context.Context, fileIDs []string, ownerID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM files
		WHERE id = ANY($1::uuid[]) AND owner_id = $2 AND %s`, liveCond)

	var count int
	if err := r.db.QueryRow(ctx, query, fileIDs, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта файлов владельца: %w", err)
	}
	return count, nil
}

func (r *fileRepo) SetVerified(ctx context.Context, fileID string, verified bool, verifiedBy string) error {
	query := `
		UPDATE files
		SET is_verified = $2, verified_by = $3, verified_at = now()
		WHERE id = $1 AND status = 'active' AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, fileID, verified, verifiedBy)
	if err != nil {
		return fmt.Errorf("ошибка обновления отметки проверки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) ListStaleUploading(ctx context.Context, cutoff time.Time) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM files
		WHERE status = 'uploading' AND deleted_at IS NULL AND created_at < $1
		ORDER BY created_at`, fileColumns)

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска незавершённых загрузок: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// ListLiveDuplicates возвращает дубликаты через оконную функцию:
// в каждой живой группе (owner_id, content_hash, category) остаётся самая
// ранняя строка, остальные попадают в результат.
func (r *fileRepo) ListLiveDuplicates(ctx context.Context) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM (
			SELECT %s,
				ROW_NUMBER() OVER (
					PARTITION BY owner_id, content_hash, category
					ORDER BY created_at, id
				) AS rn
			FROM files
			WHERE %s
		) ranked
		WHERE rn > 1
		ORDER BY created_at`, fileColumns, fileColumns, liveCond)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска дубликатов: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// collectFiles собирает все строки результата в срез FileRecord.
func collectFiles(rows pgx.Rows) ([]*model.FileRecord, error) {
	var result []*model.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}
