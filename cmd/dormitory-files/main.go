// Точка входа сервиса файлов общежитий.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL
// и объектному хранилищу, собирает сервисный слой, запускает фоновую
// уборку временных ссылок и служебный HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/boburshokhh/dormitory-files/internal/config"
	"github.com/boburshokhh/dormitory-files/internal/database"
	"github.com/boburshokhh/dormitory-files/internal/domain/rbac"
	"github.com/boburshokhh/dormitory-files/internal/repository"
	"github.com/boburshokhh/dormitory-files/internal/server"
	"github.com/boburshokhh/dormitory-files/internal/service"
	"github.com/boburshokhh/dormitory-files/internal/storage"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис файлов запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Объектное хранилище
	store, err := storage.NewMinioStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к объектному хранилищу", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Repositories
	fileRepo := repository.NewFileRepository(pool)
	linkRepo := repository.NewTempLinkRepository(pool)

	// 7. Services
	cacheSvc := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	fileSvc := service.NewFileService(fileRepo, store, cacheSvc, cfg, logger)
	linkSvc := service.NewTempLinkService(linkRepo, fileRepo, store, cfg, logger)

	// 8. Начальная очистка зависших загрузок при старте
	logger.Info("Начальная очистка зависших загрузок...")
	if report, cleanErr := fileSvc.CleanupOldFiles(ctx, rbac.RoleAdmin, "system", 0); cleanErr != nil {
		logger.Warn("Ошибка начальной очистки зависших загрузок",
			slog.String("error", cleanErr.Error()),
		)
	} else {
		logger.Info("Начальная очистка завершена",
			slog.Int("deleted", report.Deleted),
			slog.Int("errors", len(report.Errors)),
		)
	}

	// 9. Фоновая уборка временных ссылок
	sweeper := service.NewSweepService(linkSvc, cfg.LinkSweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// 10. Readiness checkers и служебный HTTP-сервер
	checks := map[string]server.ReadinessChecker{
		"postgres": database.NewReadinessChecker(pool),
		"storage":  storage.NewReadinessChecker(store),
	}

	srv := server.New(cfg, logger, checks)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
