package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/boburshokhh/dormitory-files/internal/domain/model"
)

// linkColumns — список столбцов таблицы temp_links для SELECT-запросов.
const linkColumns = `id, file_id, token, created_by, expires_at,
	is_used, used_at, used_by_ip, created_at`

// RedeemedLink — результат атомарного погашения токена: данные ссылки
// и файла, достаточные для отдачи потока без дополнительных запросов.
type RedeemedLink struct {
	LinkID       string
	FileID       string
	OriginalName string
	StorageKey   string
	MimeType     string
	SizeBytes    int64
}

// TempLinkRepository — интерфейс доступа к таблице temp_links.
type TempLinkRepository interface {
	// Insert создаёт ссылку. Коллизия токена возвращается как ErrConflict.
	Insert(ctx context.Context, l *model.TempLink) error
	// Redeem атомарно гасит токен: один условный UPDATE, совпадающий только
	// с непогашенной неистёкшей ссылкой на живой файл. При конкурентном
	// погашении одного токена успех наблюдает ровно один вызов, остальные
	// получают ErrNotFound. Счётчик скачиваний файла увеличивается тем же
	// запросом.
	Redeem(ctx context.Context, token, usedByIP string) (*RedeemedLink, error)
	// CountActiveByCreator возвращает количество активных ссылок владельца.
	CountActiveByCreator(ctx context.Context, createdBy string) (int, error)
	// CountActiveByFile возвращает количество активных ссылок на файл.
	CountActiveByFile(ctx context.Context, fileID string) (int, error)
	// ListByCreator возвращает все ссылки владельца (включая погашенные и истёкшие).
	ListByCreator(ctx context.Context, createdBy string) ([]*model.TempLink, error)
	// ListAll возвращает все ссылки системы (для повышенных ролей).
	ListAll(ctx context.Context) ([]*model.TempLink, error)
	// DeleteExpiredAndUsed удаляет все истёкшие и погашенные ссылки.
	// Идемпотентна. Возвращает количество удалённых строк.
	DeleteExpiredAndUsed(ctx context.Context) (int, error)
	// DeleteOwned удаляет ссылку, только если она принадлежит createdBy.
	// createdBy == nil снимает проверку владения (для повышенных ролей).
	// Чужая или несуществующая ссылка — ErrNotFound (без различения).
	DeleteOwned(ctx context.Context, linkID string, createdBy *string) error
}

// tempLinkRepo — реализация TempLinkRepository через pgx.
type tempLinkRepo struct {
	db DBTX
}

// NewTempLinkRepository создаёт репозиторий временных ссылок.
func NewTempLinkRepository(db DBTX) TempLinkRepository {
	return &tempLinkRepo{db: db}
}

func (r *tempLinkRepo) Insert(ctx context.Context, l *model.TempLink) error {
	query := `
		INSERT INTO temp_links (file_id, token, created_by, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		l.FileID, l.Token, l.CreatedBy, l.ExpiresAt,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: токен уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка вставки временной ссылки: %w", err)
	}
	return nil
}

// Redeem — единственное место системы, где гонка напрямую превращается
// в дефект безопасности, поэтому match-and-mark и инкремент счётчика
// выражены одним запросом с CTE.
func (r *tempLinkRepo) Redeem(ctx context.Context, token, usedByIP string) (*RedeemedLink, error) {
	query := `
		WITH redeemed AS (
			UPDATE temp_links tl
			SET is_used = TRUE, used_at = now(), used_by_ip = $2
			FROM files f
			WHERE tl.token = $1
				AND NOT tl.is_used
				AND tl.expires_at > now()
				AND f.id = tl.file_id
				AND f.status IN ('uploading', 'active')
				AND f.deleted_at IS NULL
			RETURNING tl.id AS link_id, tl.file_id,
				f.original_name, f.storage_key, f.mime_type, f.size_bytes
		)
		UPDATE files
		SET download_count = download_count + 1
		FROM redeemed
		WHERE files.id = redeemed.file_id
		RETURNING redeemed.link_id, redeemed.file_id,
			redeemed.original_name, redeemed.storage_key,
			redeemed.mime_type, redeemed.size_bytes`

	rl := &RedeemedLink{}
	err := r.db.QueryRow(ctx, query, token, usedByIP).Scan(
		&rl.LinkID, &rl.FileID, &rl.OriginalName, &rl.StorageKey, &rl.MimeType, &rl.SizeBytes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка погашения токена: %w", err)
	}
	return rl, nil
}

func (r *tempLinkRepo) CountActiveByCreator(ctx context.Context, createdBy string) (int, error) {
	query := `
		SELECT COUNT(*) FROM temp_links
		WHERE created_by = $1 AND NOT is_used AND expires_at > now()`

	var count int
	if err := r.db.QueryRow(ctx, query, createdBy).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта активных ссылок владельца: %w", err)
	}
	return count, nil
}

func (r *tempLinkRepo) CountActiveByFile(ctx context.Context, fileID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM temp_links
		WHERE file_id = $1 AND NOT is_used AND expires_at > now()`

	var count int
	if err := r.db.QueryRow(ctx, query, fileID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта активных ссылок файла: %w", err)
	}
	return count, nil
}

func (r *tempLinkRepo) ListByCreator(ctx context.Context, createdBy string) ([]*model.TempLink, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM temp_links
		WHERE created_by = $1
		ORDER BY created_at DESC`, linkColumns)

	rows, err := r.db.Query(ctx, query, createdBy)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ссылок владельца: %w", err)
	}
	defer rows.Close()

	return collectLinks(rows)
}

func (r *tempLinkRepo) ListAll(ctx context.Context) ([]*model.TempLink, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM temp_links
		ORDER BY created_at DESC`, linkColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка ссылок: %w", err)
	}
	defer rows.Close()

	return collectLinks(rows)
}

func (r *tempLinkRepo) DeleteExpiredAndUsed(ctx context.Context) (int, error) {
	query := `DELETE FROM temp_links WHERE expires_at < now() OR is_used`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления истёкших ссылок: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *tempLinkRepo) DeleteOwned(ctx context.Context, linkID string, createdBy *string) error {
	query := `DELETE FROM temp_links WHERE id = $1 AND ($2::text IS NULL OR created_by = $2)`

	tag, err := r.db.Exec(ctx, query, linkID, createdBy)
	if err != nil {
		return fmt.Errorf("ошибка удаления ссылки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// collectLinks собирает все строки результата в срез TempLink.
func collectLinks(rows pgx.Rows) ([]*model.TempLink, error) {
	var result []*model.TempLink
	for rows.Next() {
		l := &model.TempLink{}
		if err := rows.Scan(
			&l.ID, &l.FileID, &l.Token, &l.CreatedBy, &l.ExpiresAt,
			&l.IsUsed, &l.UsedAt, &l.UsedByIP, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ссылки: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}
