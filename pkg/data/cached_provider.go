package data

import (
	"path/filepath"
	"sync"

	"github.com/ducminhle1904/ou-reversion-bot/pkg/types"
)

// MemoryCache implements DataCache using in-memory storage
type MemoryCache struct {
	cache map[string][]types.OHLCV
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string][]types.OHLCV),
	}
}

// Get returns a copy of the cached candles for key
func (c *MemoryCache) Get(key string) ([]types.OHLCV, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	return append([]types.OHLCV(nil), data...), true
}

// Set stores a copy of data under key
func (c *MemoryCache) Set(key string, data []types.OHLCV) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = append([]types.OHLCV(nil), data...)
}

func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string][]types.OHLCV)
}

func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CachedProvider wraps another DataProvider so repeated fits on the same file
// read it once
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
}

// NewCachedProvider creates a new cached data provider
func NewCachedProvider(provider DataProvider) *CachedProvider {
	return NewCachedProviderWithCache(provider, NewMemoryCache())
}

// NewCachedProviderWithCache creates a new cached data provider with custom cache
func NewCachedProviderWithCache(provider DataProvider, cache DataCache) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
	}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData serves source from the cache, loading it on a miss. Failed loads
// are not cached.
func (p *CachedProvider) LoadData(source string) ([]types.OHLCV, error) {
	key := cacheKey(source)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	data, err := p.provider.LoadData(source)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, data)
	return data, nil
}

// ValidateData validates data using the underlying provider
func (p *CachedProvider) ValidateData(data []types.OHLCV) error {
	return p.provider.ValidateData(data)
}

// ClearCache clears all cached data
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// GetCacheSize returns the number of cached entries
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}

// cacheKey makes "./a.csv" and "a.csv" share an entry
func cacheKey(source string) string {
	if abs, err := filepath.Abs(source); err == nil {
		return abs
	}
	return filepath.Clean(source)
}
