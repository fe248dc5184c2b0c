package cache

import (
	"context"
	"testing"

	"github.com/Belphemur/HlsGrab/internal/config"
)

func TestFactory_New_UnknownProvider(t *testing.T) {
	if _, err := New("nonexistent", ProviderConfig{}); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestFactory_RegisteredProviders(t *testing.T) {
	names := RegisteredProviders()
	want := []string{ProviderMemory, ProviderNone, ProviderRedis}
	if len(names) != len(want) {
		t.Fatalf("Expected providers %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected sorted providers %v, got %v", want, names)
			break
		}
	}
}

func TestFactory_Register_PanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic when registering a duplicate provider")
		}
	}()
	Register(ProviderMemory, newMemoryCache)
}

func TestFactory_Register_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic when registering a nil provider")
		}
	}()
	Register("nil-provider", nil)
}

func TestFactory_New_Redis_InvalidAddress(t *testing.T) {
	_, err := New(ProviderRedis, ProviderConfig{RedisAddress: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("Expected error for unreachable redis")
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		ttl      string
		wantErr  bool
		wantKeep bool
	}{
		{"default memory", "", "", false, true},
		{"memory with ttl", "memory", "5m", false, true},
		{"none", "none", "", false, false},
		{"invalid ttl", "memory", "forever", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Cache.Type = tt.typ
			cfg.Cache.TTL = tt.ttl

			c, err := FromConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer c.Close()

			ctx := context.Background()
			c.Set(ctx, "k", []byte("v"))
			if _, ok := c.Get(ctx, "k"); ok != tt.wantKeep {
				t.Errorf("Get hit = %v, want %v", ok, tt.wantKeep)
			}
		})
	}
}
