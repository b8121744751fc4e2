// sweeper.go — фоновая периодическая уборка временных ссылок.
// Запускает горутину с ticker (DF_LINK_SWEEP_INTERVAL), которая удаляет
// просроченные и использованные ссылки.
package service

import (
	"context"
	"log/slog"
	"time"
)

// SweepService — фоновый сервис уборки временных ссылок.
type SweepService struct {
	links    *TempLinkService
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweepService создаёт фоновый сервис уборки.
func NewSweepService(links *TempLinkService, interval time.Duration, logger *slog.Logger) *SweepService {
	return &SweepService{
		links:    links,
		interval: interval,
		logger:   logger.With(slog.String("component", "link_sweeper")),
	}
}

// Start запускает фоновую горутину с периодической уборкой.
// Вызывается один раз при старте приложения.
func (s *SweepService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодическая уборка временных ссылок запущена",
			slog.String("interval", s.interval.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодическая уборка временных ссылок остановлена")
				return
			case <-ticker.C:
				if _, err := s.links.Sweep(ctx); err != nil {
					s.logger.Error("Ошибка уборки временных ссылок",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *SweepService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}
