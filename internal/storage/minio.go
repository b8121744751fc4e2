package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/boburshokhh/dormitory-files/internal/config"
)

// MinioStore — реализация ObjectStore поверх MinIO / S3-совместимого хранилища.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioStore создаёт клиент хранилища и убеждается, что bucket существует.
// Жизненным циклом клиента владеет bootstrap процесса, не сервисы.
func NewMinioStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания MinIO-клиента: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.StorageBucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки bucket %q: %w", cfg.StorageBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.StorageBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("ошибка создания bucket %q: %w", cfg.StorageBucket, err)
		}
		logger.Info("Bucket создан", slog.String("bucket", cfg.StorageBucket))
	}

	logger.Info("Клиент объектного хранилища инициализирован",
		slog.String("endpoint", cfg.StorageEndpoint),
		slog.String("bucket", cfg.StorageBucket),
	)

	return &MinioStore{
		client: client,
		bucket: cfg.StorageBucket,
		logger: logger.With(slog.String("component", "object_store")),
	}, nil
}

// Put записывает объект по ключу.
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*PutResult, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка записи объекта %s: %w", key, err)
	}
	return &PutResult{ETag: info.ETag}, nil
}

// GetStream открывает поток чтения объекта.
// MinIO открывает объект лениво, поэтому отсутствие объекта проверяется
// через Stat до возврата потока.
func (s *MinioStore) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия объекта %s: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("объект %s недоступен: %w", key, err)
	}
	return obj, nil
}

// Delete удаляет объект. Удаление отсутствующего объекта — не ошибка.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}

// Exists проверяет наличие объекта через Stat.
func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("ошибка проверки объекта %s: %w", key, err)
	}
	return true, nil
}

// PresignedURL возвращает временный URL скачивания с заголовком
// Content-Disposition, подставляющим оригинальное имя файла.
func (s *MinioStore) PresignedURL(ctx context.Context, key, fileName string, ttl time.Duration) (string, error) {
	params := make(url.Values)
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("ошибка генерации presigned URL для %s: %w", key, err)
	}
	return u.String(), nil
}

// ReadinessChecker — проверка готовности хранилища для health endpoint.
type ReadinessChecker struct {
	store *MinioStore
}

// NewReadinessChecker создаёт проверку готовности объектного хранилища.
func NewReadinessChecker(store *MinioStore) *ReadinessChecker {
	return &ReadinessChecker{store: store}
}

// CheckReady проверяет доступность bucket.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	exists, err := c.store.client.BucketExists(ctx, c.store.bucket)
	if err != nil {
		return "fail", fmt.Sprintf("хранилище недоступно: %v", err)
	}
	if !exists {
		return "fail", fmt.Sprintf("bucket %q не существует", c.store.bucket)
	}
	return "ok", "bucket доступен"
}
