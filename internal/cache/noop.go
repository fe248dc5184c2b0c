package cache

import "context"

func init() {
	Register(ProviderNone, func(ProviderConfig) (Cache, error) { return noopCache{}, nil })
}

// noopCache never stores anything; every lookup is a miss.
type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (noopCache) Set(context.Context, string, []byte)        {}
func (noopCache) Contains(context.Context, string) bool      { return false }
func (noopCache) Len() int                                   { return 0 }
func (noopCache) Close() error                               { return nil }
