// CacheService — LRU-кэш метаданных файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable. Кэш per-instance,
// поэтому любая мутация записи обязана инвалидировать её здесь же.
// Записи в кэше иммутабельны: Set и Get работают с копиями, чтобы
// конкурентные читатели не делили один указатель.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/boburshokhh/dormitory-files/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormfiles_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных файлов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormfiles_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных файлов.",
	})
)

// CacheService — LRU-кэш метаданных файлов с автоматическим TTL.
type CacheService struct {
	cache *expirable.LRU[string, *model.FileRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.FileRecord](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает FileRecord из кэша по fileID.
// Возвращает (копию записи, true) при hit или (nil, false) при miss.
func (c *CacheService) Get(fileID string) (*model.FileRecord, bool) {
	val, ok := c.cache.Get(fileID)
	if ok {
		cacheHitsTotal.Inc()
		cp := *val
		return &cp, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше. Сохраняется копия,
// мутации record после вызова кэш не затрагивают.
func (c *CacheService) Set(fileID string, record *model.FileRecord) {
	cp := *record
	c.cache.Add(fileID, &cp)
}

// Delete удаляет запись из кэша (инвалидация при мутации).
func (c *CacheService) Delete(fileID string) {
	c.cache.Remove(fileID)
}
