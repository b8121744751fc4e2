// Пакет config — загрузка и валидация конфигурации сервиса файлов
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации сервиса файлов.
type Config struct {
	// --- Сервер ---

	// Порт служебного HTTP-сервера (health, metrics)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Объектное хранилище (MinIO / S3-совместимое) ---

	// Endpoint хранилища (host:port)
	StorageEndpoint string
	// Access key
	StorageAccessKey string
	// Secret key
	StorageSecretKey string
	// Имя bucket
	StorageBucket string
	// Использовать TLS при подключении к хранилищу
	StorageUseSSL bool
	// Время жизни presigned URL
	PresignTTL time.Duration

	// --- Загрузка файлов ---

	// Максимальный размер одного файла (байт)
	MaxFileSize int64
	// Максимальное количество файлов в одной пакетной загрузке
	MaxFilesPerBatch int
	// Максимальный суммарный размер живых файлов владельца (байт)
	MaxTotalSizePerOwner int64
	// Запрещённые расширения файлов (без точки, через запятую)
	BlockedExtensions []string

	// --- Временные ссылки ---

	// Базовый публичный URL для формирования ссылок скачивания
	PublicBaseURL string
	// Минимальное время жизни ссылки (часов)
	LinkExpiryMinHours int
	// Максимальное время жизни ссылки (часов)
	LinkExpiryMaxHours int
	// Время жизни ссылки по умолчанию (часов)
	LinkExpiryDefaultHours int
	// Максимум активных ссылок на одного владельца
	MaxActiveLinksPerOwner int
	// Максимум активных ссылок на один файл
	MaxActiveLinksPerFile int
	// Интервал фонового sweep'а истёкших и использованных ссылок
	LinkSweepInterval time.Duration

	// --- Очистка файлов ---

	// Возраст незавершённых загрузок для очистки по умолчанию (дней)
	CleanupDefaultDays int
	// Максимально допустимый возраст для очистки (дней)
	CleanupMaxDays int

	// --- Пагинация ---

	// Размер страницы по умолчанию
	DefaultPageSize int
	// Максимальный размер страницы
	MaxPageSize int

	// --- Кэш метаданных ---

	// Максимальное количество записей в LRU-кэше
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// DF_PORT — порт служебного HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("DF_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("DF_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("DF_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// DF_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DF_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DF_LOG_LEVEL: %w", err)
	}

	// DF_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("DF_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DF_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// DF_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("DF_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DF_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// DF_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("DF_DB_HOST")
	if err != nil {
		return nil, err
	}

	// DF_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("DF_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("DF_DB_PORT: %w", err)
	}

	// DF_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("DF_DB_NAME")
	if err != nil {
		return nil, err
	}

	// DF_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("DF_DB_USER")
	if err != nil {
		return nil, err
	}

	// DF_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("DF_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// DF_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("DF_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("DF_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Объектное хранилище ---

	// DF_STORAGE_ENDPOINT — обязательный
	cfg.StorageEndpoint, err = getEnvRequired("DF_STORAGE_ENDPOINT")
	if err != nil {
		return nil, err
	}

	// DF_STORAGE_ACCESS_KEY — обязательный
	cfg.StorageAccessKey, err = getEnvRequired("DF_STORAGE_ACCESS_KEY")
	if err != nil {
		return nil, err
	}

	// DF_STORAGE_SECRET_KEY — обязательный
	cfg.StorageSecretKey, err = getEnvRequired("DF_STORAGE_SECRET_KEY")
	if err != nil {
		return nil, err
	}

	// DF_STORAGE_BUCKET — имя bucket (по умолчанию dormitory-files)
	cfg.StorageBucket = getEnvDefault("DF_STORAGE_BUCKET", "dormitory-files")

	// DF_STORAGE_USE_SSL — TLS к хранилищу (по умолчанию false)
	cfg.StorageUseSSL, err = getEnvBool("DF_STORAGE_USE_SSL", false)
	if err != nil {
		return nil, fmt.Errorf("DF_STORAGE_USE_SSL: %w", err)
	}

	// DF_PRESIGN_TTL — время жизни presigned URL (по умолчанию 15m)
	cfg.PresignTTL, err = getEnvDuration("DF_PRESIGN_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DF_PRESIGN_TTL: %w", err)
	}

	// --- Загрузка файлов ---

	// DF_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 20 МБ)
	cfg.MaxFileSize, err = getEnvInt64("DF_MAX_FILE_SIZE", 20<<20)
	if err != nil {
		return nil, fmt.Errorf("DF_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize < 1 {
		return nil, fmt.Errorf("DF_MAX_FILE_SIZE: значение должно быть положительным")
	}

	// DF_MAX_FILES_PER_BATCH — максимум файлов в пакете (по умолчанию 10)
	cfg.MaxFilesPerBatch, err = getEnvInt("DF_MAX_FILES_PER_BATCH", 10)
	if err != nil {
		return nil, fmt.Errorf("DF_MAX_FILES_PER_BATCH: %w", err)
	}
	if cfg.MaxFilesPerBatch < 1 || cfg.MaxFilesPerBatch > 100 {
		return nil, fmt.Errorf("DF_MAX_FILES_PER_BATCH: значение %d вне допустимого диапазона 1-100", cfg.MaxFilesPerBatch)
	}

	// DF_MAX_TOTAL_SIZE_PER_OWNER — квота владельца (по умолчанию 500 МБ)
	cfg.MaxTotalSizePerOwner, err = getEnvInt64("DF_MAX_TOTAL_SIZE_PER_OWNER", 500<<20)
	if err != nil {
		return nil, fmt.Errorf("DF_MAX_TOTAL_SIZE_PER_OWNER: %w", err)
	}

	// DF_BLOCKED_EXTENSIONS — запрещённые расширения (по умолчанию исполняемые)
	cfg.BlockedExtensions = parseCSV(getEnvDefault("DF_BLOCKED_EXTENSIONS", "exe,bat,cmd,sh,msi,dll,js"))

	// --- Временные ссылки ---

	// DF_PUBLIC_BASE_URL — обязательный, без trailing slash
	cfg.PublicBaseURL, err = getEnvRequired("DF_PUBLIC_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	// DF_LINK_EXPIRY_MIN_HOURS — минимум (по умолчанию 1)
	cfg.LinkExpiryMinHours, err = getEnvInt("DF_LINK_EXPIRY_MIN_HOURS", 1)
	if err != nil {
		return nil, fmt.Errorf("DF_LINK_EXPIRY_MIN_HOURS: %w", err)
	}

	// DF_LINK_EXPIRY_MAX_HOURS — максимум (по умолчанию 168 = 7 дней)
	cfg.LinkExpiryMaxHours, err = getEnvInt("DF_LINK_EXPIRY_MAX_HOURS", 168)
	if err != nil {
		return nil, fmt.Errorf("DF_LINK_EXPIRY_MAX_HOURS: %w", err)
	}
	if cfg.LinkExpiryMaxHours < cfg.LinkExpiryMinHours {
		return nil, fmt.Errorf("DF_LINK_EXPIRY_MAX_HOURS: значение %d меньше DF_LINK_EXPIRY_MIN_HOURS (%d)",
			cfg.LinkExpiryMaxHours, cfg.LinkExpiryMinHours)
	}

	// DF_LINK_EXPIRY_DEFAULT_HOURS — по умолчанию 24
	cfg.LinkExpiryDefaultHours, err = getEnvInt("DF_LINK_EXPIRY_DEFAULT_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("DF_LINK_EXPIRY_DEFAULT_HOURS: %w", err)
	}
	if cfg.LinkExpiryDefaultHours < cfg.LinkExpiryMinHours || cfg.LinkExpiryDefaultHours > cfg.LinkExpiryMaxHours {
		return nil, fmt.Errorf("DF_LINK_EXPIRY_DEFAULT_HOURS: значение %d вне диапазона %d-%d",
			cfg.LinkExpiryDefaultHours, cfg.LinkExpiryMinHours, cfg.LinkExpiryMaxHours)
	}

	// DF_MAX_ACTIVE_LINKS_PER_OWNER — по умолчанию 20
	cfg.MaxActiveLinksPerOwner, err = getEnvInt("DF_MAX_ACTIVE_LINKS_PER_OWNER", 20)
	if err != nil {
		return nil, fmt.Errorf("DF_MAX_ACTIVE_LINKS_PER_OWNER: %w", err)
	}

	// DF_MAX_ACTIVE_LINKS_PER_FILE — по умолчанию 5
	cfg.MaxActiveLinksPerFile, err = getEnvInt("DF_MAX_ACTIVE_LINKS_PER_FILE", 5)
	if err != nil {
		return nil, fmt.Errorf("DF_MAX_ACTIVE_LINKS_PER_FILE: %w", err)
	}

	// DF_LINK_SWEEP_INTERVAL — интервал sweep'а (по умолчанию 1h)
	cfg.LinkSweepInterval, err = getEnvDuration("DF_LINK_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("DF_LINK_SWEEP_INTERVAL: %w", err)
	}

	// --- Очистка файлов ---

	// DF_CLEANUP_DEFAULT_DAYS — по умолчанию 7
	cfg.CleanupDefaultDays, err = getEnvInt("DF_CLEANUP_DEFAULT_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("DF_CLEANUP_DEFAULT_DAYS: %w", err)
	}

	// DF_CLEANUP_MAX_DAYS — по умолчанию 365
	cfg.CleanupMaxDays, err = getEnvInt("DF_CLEANUP_MAX_DAYS", 365)
	if err != nil {
		return nil, fmt.Errorf("DF_CLEANUP_MAX_DAYS: %w", err)
	}

	// --- Пагинация ---

	// DF_DEFAULT_PAGE_SIZE — по умолчанию 20
	cfg.DefaultPageSize, err = getEnvInt("DF_DEFAULT_PAGE_SIZE", 20)
	if err != nil {
		return nil, fmt.Errorf("DF_DEFAULT_PAGE_SIZE: %w", err)
	}

	// DF_MAX_PAGE_SIZE — по умолчанию 100
	cfg.MaxPageSize, err = getEnvInt("DF_MAX_PAGE_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("DF_MAX_PAGE_SIZE: %w", err)
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, fmt.Errorf("DF_MAX_PAGE_SIZE: значение %d меньше DF_DEFAULT_PAGE_SIZE (%d)",
			cfg.MaxPageSize, cfg.DefaultPageSize)
	}

	// --- Кэш метаданных ---

	// DF_CACHE_SIZE — по умолчанию 1000
	cfg.CacheSize, err = getEnvInt("DF_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("DF_CACHE_SIZE: %w", err)
	}

	// DF_CACHE_TTL — по умолчанию 5m
	cfg.CacheTTL, err = getEnvDuration("DF_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DF_CACHE_TTL: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64-значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, strings.ToLower(p))
		}
	}
	return result
}
