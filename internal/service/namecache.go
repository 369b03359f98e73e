// namecache.go — LRU-кэш результатов разбора имён архивов.
// Обёртка над hashicorp/golang-lru/v2. Разбор зависит только от имени
// файла, поэтому записи не устаревают и вытесняются только по размеру.
package service

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
	"github.com/bigkaa/goartstore/dump-module/internal/domain/naming"
)

// nameCacheSize — максимальное число имён в кэше.
const nameCacheSize = 4096

// Prometheus-метрики кэша имён.
var (
	nameCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dump_name_cache_hits_total",
		Help: "Общее количество попаданий в кэш разбора имён архивов.",
	})
	nameCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dump_name_cache_misses_total",
		Help: "Общее количество промахов кэша разбора имён архивов.",
	})
)

// decoded — результат разбора: имя или ошибка.
type decoded struct {
	name model.ArchiveName
	err  error
}

// nameCache — кэш naming.Decode по имени файла.
type nameCache struct {
	cache *lru.Cache[string, decoded]
}

// newNameCache создаёт кэш на size записей.
func newNameCache(size int) *nameCache {
	// Ошибка возможна только при size <= 0
	cache, err := lru.New[string, decoded](max(size, 1))
	if err != nil {
		panic(err)
	}
	return &nameCache{cache: cache}
}

// Decode возвращает результат naming.Decode, кэшируя его.
func (c *nameCache) Decode(filename string) (model.ArchiveName, error) {
	if d, ok := c.cache.Get(filename); ok {
		nameCacheHitsTotal.Inc()
		return d.name, d.err
	}
	nameCacheMissesTotal.Inc()

	name, err := naming.Decode(filename)
	c.cache.Add(filename, decoded{name: name, err: err})
	return name, err
}

// Len возвращает число записей в кэше.
func (c *nameCache) Len() int {
	return c.cache.Len()
}
