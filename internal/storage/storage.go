// Пакет storage — клиент внешнего объектного хранилища.
// Сервис не реализует движок хранения: ObjectStore — тонкий контракт
// поверх S3-совместимого хранилища (MinIO).
package storage

import (
	"context"
	"io"
	"time"
)

// PutResult — результат записи объекта.
type PutResult struct {
	// ETag — идентификатор версии объекта, присвоенный хранилищем
	ETag string
}

// ObjectStore — контракт внешнего хранилища блобов.
type ObjectStore interface {
	// Put записывает объект по ключу.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*PutResult, error)
	// GetStream открывает поток чтения объекта.
	// Закрытие потока — обязанность вызывающего.
	GetStream(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete удаляет объект. Удаление отсутствующего объекта — не ошибка.
	Delete(ctx context.Context, key string) error
	// Exists проверяет наличие объекта.
	Exists(ctx context.Context, key string) (bool, error)
	// PresignedURL возвращает временный URL для скачивания объекта.
	PresignedURL(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
}
