// Пакет model — доменные модели сервиса файлов.
// FileRecord — маппинг таблицы files, TempLink — таблицы temp_links.
package model

import "time"

// Статусы файла (закрытое множество).
// Переходы: uploading → active, uploading → deleted, active → deleted,
// uploading → failed. failed — терминальный.
const (
	StatusUploading = "uploading"
	StatusActive    = "active"
	StatusDeleted   = "deleted"
	StatusFailed    = "failed"
)

// Типы связанных сущностей (полиморфная привязка файла).
const (
	EntityUser        = "user"
	EntityApplication = "application"
	EntityContract    = "contract"
)

// FileRecord — запись файла в реестре files.
type FileRecord struct {
	// ID — UUID файла, генерируется при вставке
	ID string
	// OwnerID — идентификатор загрузившего пользователя
	OwnerID string
	// RelatedEntityType — тип бизнес-сущности, к которой привязан файл.
	// До активации — "user" (собственная запись владельца).
	RelatedEntityType string
	// RelatedEntityID — идентификатор бизнес-сущности
	RelatedEntityID string
	// OriginalName — оригинальное имя файла
	OriginalName string
	// StorageKey — ключ объекта в хранилище (не совпадает с OriginalName)
	StorageKey string
	// Category — категория файла (см. пакет category)
	Category string
	// MimeType — MIME-тип файла
	MimeType string
	// SizeBytes — размер файла в байтах
	SizeBytes int64
	// ContentHash — SHA-256 контрольная сумма исходных байт (hex)
	ContentHash string
	// Status — статус файла: uploading, active, deleted, failed
	Status string
	// IsVerified — административная отметка о проверке
	IsVerified bool
	// VerifiedBy — идентификатор проверившего (опционально)
	VerifiedBy *string
	// VerifiedAt — время проверки (опционально)
	VerifiedAt *time.Time
	// DownloadCount — счётчик скачиваний, только растёт
	DownloadCount int64
	// Metadata — произвольные пары ключ/значение (например, ETag хранилища)
	Metadata map[string]string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
	// DeletedAt — отметка soft delete (NULL для живых записей)
	DeletedAt *time.Time
}

// IsLive сообщает, считается ли запись «живой»:
// status ∈ {uploading, active} и нет отметки soft delete.
func (f *FileRecord) IsLive() bool {
	if f.DeletedAt != nil {
		return false
	}
	return f.Status == StatusUploading || f.Status == StatusActive
}

// IsValidStatus проверяет, является ли строка допустимым статусом файла.
func IsValidStatus(s string) bool {
	switch s {
	case StatusUploading, StatusActive, StatusDeleted, StatusFailed:
		return true
	}
	return false
}
