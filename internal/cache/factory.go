package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Belphemur/HlsGrab/internal/config"
)

// Provider names accepted by New.
const (
	ProviderMemory = "memory"
	ProviderRedis  = "redis"
	ProviderNone   = "none"
)

// ProviderConfig holds the configuration needed to create a cache instance.
type ProviderConfig struct {
	// Size is the maximum number of entries (memory provider only).
	Size int

	// TTL is the time-to-live for cache entries.
	TTL time.Duration

	// OnEvict is called when an entry is evicted. Not all providers support this.
	OnEvict EvictCallback

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// KeyPrefix namespaces keys in shared backends. Defaults to "hlsgrab:manifest:".
	KeyPrefix string

	// Group labels the Prometheus metrics of this instance.
	// When non-empty the cache is wrapped with metric instrumentation.
	Group string
}

// Provider is a constructor function that creates a Cache from config.
type Provider func(cfg ProviderConfig) (Cache, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register registers a cache provider under the given name.
// It panics if the name is already registered or the provider is nil.
func Register(name string, p Provider) {
	mu.Lock()
	defer mu.Unlock()

	if p == nil {
		panic("cache: Register provider is nil")
	}
	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("cache: provider %q already registered", name))
	}
	providers[name] = p
}

// New creates a Cache using the named provider.
func New(name string, cfg ProviderConfig) (Cache, error) {
	mu.RLock()
	p, ok := providers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("cache: unknown provider %q (registered: %v)", name, RegisteredProviders())
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "hlsgrab:manifest:"
	}

	if cfg.Group == "" {
		return p(cfg)
	}

	group := cfg.Group
	original := cfg.OnEvict
	cfg.OnEvict = func(key string, value []byte) {
		EvictionsTotal.WithLabelValues(group).Inc()
		if original != nil {
			original(key, value)
		}
	}

	inner, err := p(cfg)
	if err != nil {
		return nil, err
	}
	return newInstrumentedCache(inner, group), nil
}

// FromConfig creates the manifest cache described by cfg.Cache.
// An empty type selects the memory provider.
func FromConfig(cfg *config.Config) (Cache, error) {
	name := cfg.Cache.Type
	if name == "" {
		name = ProviderMemory
	}
	size := cfg.Cache.Size
	if size <= 0 {
		size = 64
	}

	var ttl time.Duration = time.Hour
	if cfg.Cache.TTL != "" {
		parsed, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("cache: invalid ttl %q: %w", cfg.Cache.TTL, err)
		}
		ttl = parsed
	}

	return New(name, ProviderConfig{
		Size:          size,
		TTL:           ttl,
		RedisAddress:  cfg.Cache.Redis.Address,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
		Group:         "manifest",
	})
}

// RegisteredProviders returns a sorted list of registered provider names.
func RegisteredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
