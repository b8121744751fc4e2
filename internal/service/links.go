// links.go — сервис одноразовых временных ссылок.
// Выдача с лимитами на создателя и на файл, атомарное погашение,
// статистика и уборка отработавших ссылок.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/boburshokhh/dormitory-files/internal/config"
	"github.com/boburshokhh/dormitory-files/internal/domain/model"
	"github.com/boburshokhh/dormitory-files/internal/domain/rbac"
	"github.com/boburshokhh/dormitory-files/internal/repository"
	"github.com/boburshokhh/dormitory-files/internal/storage"
)

// Prometheus-метрики временных ссылок.
var (
	linksIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormfiles_links_issued_total",
		Help: "Общее количество выданных временных ссылок.",
	})

	linksRedeemedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dormfiles_links_redeemed_total",
		Help: "Общее количество попыток погашения ссылок (по исходу).",
	}, []string{"outcome"}) // outcome: ok, rejected, storage_error

	linksSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormfiles_links_swept_total",
		Help: "Общее количество ссылок, удалённых уборкой.",
	})
)

// GeneratedLink — выданная временная ссылка.
type GeneratedLink struct {
	Token     string
	URL       string
	FileName  string
	ExpiresAt time.Time
}

// DownloadStream — результат погашения ссылки: поток содержимого
// и метаданные для отдачи клиенту. Закрыть Reader обязан вызывающий.
type DownloadStream struct {
	Reader    io.ReadCloser
	FileName  string
	MimeType  string
	SizeBytes int64
}

// LinkStats — сводка по временным ссылкам.
type LinkStats struct {
	Total   int
	Active  int
	Used    int
	Expired int
	Links   []*model.TempLink
}

// TempLinkService — сервис одноразовых временных ссылок.
type TempLinkService struct {
	links  repository.TempLinkRepository
	files  repository.FileRepository
	store  storage.ObjectStore
	cfg    *config.Config
	logger *slog.Logger
}

// NewTempLinkService создаёт сервис временных ссылок.
func NewTempLinkService(
	links repository.TempLinkRepository,
	files repository.FileRepository,
	store storage.ObjectStore,
	cfg *config.Config,
	logger *slog.Logger,
) *TempLinkService {
	return &TempLinkService{
		links:  links,
		files:  files,
		store:  store,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "templink_service")),
	}
}

// Generate выдаёт одноразовую ссылку на живой файл.
//
// Порядок проверок фиксирован: существование файла, право создателя,
// срок действия, лимит активных ссылок создателя, лимит активных
// ссылок на файл. expiryHours == 0 означает срок по умолчанию.
func (s *TempLinkService) Generate(ctx context.Context, fileID, creatorID, creatorRole string, expiryHours int) (*GeneratedLink, error) {
	f, err := s.files.GetLiveByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: файл не найден", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if f.OwnerID != creatorID && !rbac.CanActOnForeignResource(creatorRole) {
		return nil, fmt.Errorf("%w: ссылку на чужой файл может создать только повышенная роль", ErrPermissionDenied)
	}

	if expiryHours == 0 {
		expiryHours = s.cfg.LinkExpiryDefaultHours
	}
	if expiryHours < s.cfg.LinkExpiryMinHours || expiryHours > s.cfg.LinkExpiryMaxHours {
		return nil, fmt.Errorf("%w: срок действия %d ч вне диапазона %d..%d",
			ErrValidation, expiryHours, s.cfg.LinkExpiryMinHours, s.cfg.LinkExpiryMaxHours)
	}

	byCreator, err := s.links.CountActiveByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if byCreator >= s.cfg.MaxActiveLinksPerOwner {
		return nil, fmt.Errorf("%w: достигнут лимит активных ссылок пользователя (%d)",
			ErrBusinessRule, s.cfg.MaxActiveLinksPerOwner)
	}

	byFile, err := s.links.CountActiveByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if byFile >= s.cfg.MaxActiveLinksPerFile {
		return nil, fmt.Errorf("%w: достигнут лимит активных ссылок на файл (%d)",
			ErrBusinessRule, s.cfg.MaxActiveLinksPerFile)
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("%w: генерация токена: %v", ErrStorage, err)
	}

	link := &model.TempLink{
		FileID:    fileID,
		Token:     token,
		CreatedBy: creatorID,
		ExpiresAt: time.Now().Add(time.Duration(expiryHours) * time.Hour),
	}
	if err := s.links.Insert(ctx, link); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	linksIssuedTotal.Inc()
	s.logger.Info("Выдана временная ссылка",
		slog.String("file_id", fileID),
		slog.String("created_by", creatorID),
		slog.Time("expires_at", link.ExpiresAt),
	)

	return &GeneratedLink{
		Token:     token,
		URL:       fmt.Sprintf("%s/files/temp/%s", s.cfg.PublicBaseURL, token),
		FileName:  f.OriginalName,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

// Redeem гасит ссылку по токену и открывает поток содержимого.
// Погашение атомарно на уровне БД: из конкурирующих запросов с одним
// токеном успешен ровно один. Несуществующий, использованный и
// просроченный токены неразличимы для вызывающего.
//
// Если ссылка погашена, но хранилище не отдало поток, ссылка остаётся
// использованной: повторное скачивание по одноразовому токену
// недопустимо даже после сбоя.
func (s *TempLinkService) Redeem(ctx context.Context, token, clientIP string) (*DownloadStream, error) {
	redeemed, err := s.links.Redeem(ctx, token, clientIP)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			linksRedeemedTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: ссылка недействительна", ErrNotFound)
		}
		linksRedeemedTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	rc, err := s.store.GetStream(ctx, redeemed.StorageKey)
	if err != nil {
		linksRedeemedTotal.WithLabelValues("storage_error").Inc()
		s.logger.Error("Ссылка погашена, но хранилище не отдало объект",
			slog.String("link_id", redeemed.LinkID),
			slog.String("storage_key", redeemed.StorageKey),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	linksRedeemedTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Ссылка погашена",
		slog.String("link_id", redeemed.LinkID),
		slog.String("file_id", redeemed.FileID),
		slog.String("client_ip", clientIP),
	)

	return &DownloadStream{
		Reader:    rc,
		FileName:  redeemed.OriginalName,
		MimeType:  redeemed.MimeType,
		SizeBytes: redeemed.SizeBytes,
	}, nil
}

// Stats возвращает сводку по ссылкам: свои для обычной роли,
// все — для повышенной.
func (s *TempLinkService) Stats(ctx context.Context, requesterID, requesterRole string) (*LinkStats, error) {
	var (
		links []*model.TempLink
		err   error
	)
	if rbac.CanActOnForeignResource(requesterRole) {
		links, err = s.links.ListAll(ctx)
	} else {
		links, err = s.links.ListByCreator(ctx, requesterID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	now := time.Now()
	stats := &LinkStats{Total: len(links), Links: links}
	for _, l := range links {
		switch {
		case l.IsUsed:
			stats.Used++
		case l.IsExpired(now):
			stats.Expired++
		default:
			stats.Active++
		}
	}
	return stats, nil
}

// DeleteLink удаляет ссылку создателя. Повышенная роль удаляет любую.
func (s *TempLinkService) DeleteLink(ctx context.Context, linkID, requesterID, requesterRole string) error {
	var creatorID *string
	if !rbac.CanActOnForeignResource(requesterRole) {
		creatorID = &requesterID
	}

	if err := s.links.DeleteOwned(ctx, linkID, creatorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: ссылка не найдена", ErrNotFound)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Sweep удаляет просроченные и использованные ссылки.
// Идемпотентна: повторный вызов без новых кандидатов удаляет ноль строк.
func (s *TempLinkService) Sweep(ctx context.Context) (int, error) {
	n, err := s.links.DeleteExpiredAndUsed(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if n > 0 {
		linksSweptTotal.Add(float64(n))
		s.logger.Info("Уборка временных ссылок", slog.Int("deleted", n))
	}
	return n, nil
}

// newToken возвращает криптографически случайный токен из 64 hex-символов.
func newToken() (string, error) {
	buf := make([]byte, model.TokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
