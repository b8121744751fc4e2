// cleanup.go — административные операции очистки:
// зависшие незавершённые загрузки и дубликаты по содержимому.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/boburshokhh/dormitory-files/internal/domain/model"
	"github.com/boburshokhh/dormitory-files/internal/domain/rbac"
	"github.com/boburshokhh/dormitory-files/internal/repository"
)

var cleanupDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dormfiles_cleanup_deleted_total",
	Help: "Количество записей, удалённых операциями очистки (по виду).",
}, []string{"kind"}) // kind: stale, duplicate

// CleanupReport — итог операции очистки.
type CleanupReport struct {
	Deleted int
	// Errors — причины сбоев отдельных записей; очистка продолжается
	// несмотря на них
	Errors []string
}

// CleanupOldFiles помечает удалёнными записи, зависшие в uploading
// дольше daysOld дней. daysOld вне допустимого диапазона приводится
// к значениям из конфигурации. Только повышенная роль; инициатор
// фиксируется в журнале.
func (s *FileService) CleanupOldFiles(ctx context.Context, requesterRole, requesterID string, daysOld int) (*CleanupReport, error) {
	if !rbac.CanActOnForeignResource(requesterRole) {
		return nil, fmt.Errorf("%w: очистка доступна только повышенной роли", ErrPermissionDenied)
	}

	if daysOld <= 0 {
		daysOld = s.cfg.CleanupDefaultDays
	}
	if daysOld > s.cfg.CleanupMaxDays {
		daysOld = s.cfg.CleanupMaxDays
	}
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	stale, err := s.files.ListStaleUploading(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	report := s.deleteBatch(ctx, stale, "stale")

	s.logger.Info("Очистка зависших загрузок завершена",
		slog.String("requester_id", requesterID),
		slog.Int("days_old", daysOld),
		slog.Int("deleted", report.Deleted),
		slog.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// CleanupDuplicateFiles помечает удалёнными живые дубликаты
// (владелец, хэш, категория), оставляя самую раннюю запись каждой
// группы. Только повышенная роль; инициатор фиксируется в журнале.
func (s *FileService) CleanupDuplicateFiles(ctx context.Context, requesterRole, requesterID string) (*CleanupReport, error) {
	if !rbac.CanActOnForeignResource(requesterRole) {
		return nil, fmt.Errorf("%w: очистка доступна только повышенной роли", ErrPermissionDenied)
	}

	dups, err := s.files.ListLiveDuplicates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	report := s.deleteBatch(ctx, dups, "duplicate")

	s.logger.Info("Очистка дубликатов завершена",
		slog.String("requester_id", requesterID),
		slog.Int("deleted", report.Deleted),
		slog.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// deleteBatch помечает удалёнными набор записей. Сбой одной записи
// не прерывает остальные, блоб удаляется best-effort.
func (s *FileService) deleteBatch(ctx context.Context, files []*model.FileRecord, kind string) *CleanupReport {
	report := &CleanupReport{}
	for _, f := range files {
		if err := s.files.SoftDelete(ctx, f.ID); err != nil {
			// Запись могла исчезнуть между выборкой и удалением
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("файл %s: %v", f.ID, err))
			continue
		}
		s.cache.Delete(f.ID)
		s.cleanupOrphanBlob(ctx, f.StorageKey)
		report.Deleted++
		cleanupDeletedTotal.WithLabelValues(kind).Inc()
	}
	return report
}
