package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-bankcache/pkg/testsupport"
)

type storeFactory func(t *testing.T, clock Clock) *expiringStore

func memoryBackends() map[string]storeFactory {
	return map[string]storeFactory{
		BackendSturdyc: func(t *testing.T, clock Clock) *expiringStore {
			cfg := DefaultConfig()
			cfg.Clock = clock
			store, err := NewSturdycStore(cfg)
			if err != nil {
				t.Fatalf("NewSturdycStore: %v", err)
			}
			return store
		},
		BackendRistretto: func(t *testing.T, clock Clock) *expiringStore {
			cfg := DefaultConfig()
			cfg.Backend = BackendRistretto
			cfg.Clock = clock
			store, err := NewRistrettoStore(cfg)
			if err != nil {
				t.Fatalf("NewRistrettoStore: %v", err)
			}
			t.Cleanup(func() { _ = store.Close(context.Background()) })
			return store
		},
	}
}

func TestExpiringStore_InsertLookupRemove(t *testing.T) {
	for name, factory := range memoryBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, testsupport.NewFakeClock(time.Time{}))

			if _, ok, _ := store.Lookup(ctx, "accounts::id::1"); ok {
				t.Fatal("expected empty store")
			}

			if err := store.Insert(ctx, "accounts::id::1", "checking", DefaultConfig().EntryOptions()); err != nil {
				t.Fatalf("Insert: %v", err)
			}

			value, ok, err := store.Lookup(ctx, "accounts::id::1")
			if err != nil || !ok {
				t.Fatalf("Lookup = %v, %v", ok, err)
			}
			if value != "checking" {
				t.Errorf("expected checking, got %v", value)
			}

			if err := store.Remove(ctx, "accounts::id::1", "never-inserted"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, ok, _ := store.Lookup(ctx, "accounts::id::1"); ok {
				t.Error("expected entry to be removed")
			}
		})
	}
}

func TestExpiringStore_AbsoluteExpiration(t *testing.T) {
	for name, factory := range memoryBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := testsupport.NewFakeClock(time.Time{})
			store := factory(t, clock)
			opts := EntryOptions{Sliding: 10 * time.Second, Absolute: 30 * time.Second, Size: 1}

			_ = store.Insert(ctx, "k", 1, opts)

			// reads every 5s keep the sliding window alive until the absolute deadline
			for i := 0; i < 5; i++ {
				clock.Advance(5 * time.Second)
				if _, ok, _ := store.Lookup(ctx, "k"); !ok {
					t.Fatalf("expected hit after %v", time.Duration(i+1)*5*time.Second)
				}
			}

			clock.Advance(5 * time.Second)
			if _, ok, _ := store.Lookup(ctx, "k"); ok {
				t.Error("expected entry to expire at the absolute deadline")
			}
		})
	}
}

func TestExpiringStore_SlidingExpiration(t *testing.T) {
	for name, factory := range memoryBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := testsupport.NewFakeClock(time.Time{})
			store := factory(t, clock)
			opts := EntryOptions{Sliding: 10 * time.Second, Absolute: time.Minute, Size: 1}

			_ = store.Insert(ctx, "k", 1, opts)

			clock.Advance(9 * time.Second)
			if _, ok, _ := store.Lookup(ctx, "k"); !ok {
				t.Fatal("expected hit inside sliding window")
			}

			clock.Advance(10 * time.Second)
			if _, ok, _ := store.Lookup(ctx, "k"); ok {
				t.Error("expected entry to expire after an idle sliding window")
			}
		})
	}
}

func TestExpiringStore_NoExpiration(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewFakeClock(time.Time{})
	store := memoryBackends()[BackendSturdyc](t, clock)

	_ = store.Insert(ctx, "k", 1, EntryOptions{})
	clock.Advance(time.Hour)

	if _, ok, _ := store.Lookup(ctx, "k"); !ok {
		t.Error("expected entry without expiration to survive")
	}
}

func TestExpiringStore_RemovePrefix(t *testing.T) {
	ctx := context.Background()
	clock := testsupport.NewFakeClock(time.Time{})
	opts := DefaultConfig().EntryOptions()

	sturdy := memoryBackends()[BackendSturdyc](t, clock)
	for i := 0; i < 3; i++ {
		_ = sturdy.Insert(ctx, fmt.Sprintf("accounts::id::%d", i), i, opts)
	}
	_ = sturdy.Insert(ctx, "branches::list", []int{1}, opts)

	if err := sturdy.RemovePrefix(ctx, "accounts::"); err != nil {
		t.Fatalf("RemovePrefix: %v", err)
	}
	if _, ok, _ := sturdy.Lookup(ctx, "accounts::id::1"); ok {
		t.Error("expected accounts keys removed")
	}
	if _, ok, _ := sturdy.Lookup(ctx, "branches::list"); !ok {
		t.Error("expected other namespaces untouched")
	}

	ristretto := memoryBackends()[BackendRistretto](t, clock)
	if err := ristretto.RemovePrefix(ctx, "accounts::"); !errors.Is(err, ErrPrefixUnsupported) {
		t.Errorf("expected ErrPrefixUnsupported, got %v", err)
	}
}

func TestExpiringStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := memoryBackends()[BackendSturdyc](t, SystemClock{})
	opts := DefaultConfig().EntryOptions()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%4)
			_ = store.Insert(ctx, key, n, opts)
			_, _, _ = store.Lookup(ctx, key)
			_ = store.Remove(ctx, key)
		}(i)
	}
	wg.Wait()
}

func TestNewRistrettoStore_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCost = 0

	if _, err := NewRistrettoStore(cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewSturdycStore_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 0

	_, err := NewSturdycStore(cfg)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "Capacity" {
		t.Fatalf("expected Capacity ConfigError, got %v", err)
	}
}

func TestExpiringStore_ExpiredEvictionKeepsRefilledEntry(t *testing.T) {
	for name, factory := range memoryBackends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := testsupport.NewFakeClock(time.Time{})
			store := factory(t, clock)
			key := "accounts::list"

			if err := store.Insert(ctx, key, "stale", EntryOptions{Absolute: time.Second, Size: 1}); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			stale, ok := store.backend.get(key)
			if !ok {
				t.Fatal("expected stale entry in backend")
			}

			clock.Advance(2 * time.Second)
			// a refill lands between the expired read and its delete
			if err := store.Insert(ctx, key, "fresh", EntryOptions{Absolute: time.Minute, Size: 1}); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			store.evict(key, stale)

			value, ok, err := store.Lookup(ctx, key)
			if err != nil || !ok || value != "fresh" {
				t.Fatalf("Lookup = %v, %v, %v; want refilled entry", value, ok, err)
			}

			clock.Advance(2 * time.Minute)
			if _, ok, _ := store.Lookup(ctx, key); ok {
				t.Fatal("expected expired entry to miss")
			}
			if _, ok := store.backend.get(key); ok {
				t.Error("expected expired entry to be deleted from the backend")
			}
		})
	}
}

func TestExpiringStore_MaxEntryTTL(t *testing.T) {
	tests := []struct {
		backend string
		want    time.Duration
	}{
		{backend: BackendSturdyc, want: 30 * time.Second},
		{backend: BackendRistretto, want: 0},
	}

	backends := memoryBackends()
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			store := backends[tt.backend](t, nil)
			if got := store.MaxEntryTTL(); got != tt.want {
				t.Errorf("MaxEntryTTL() = %v, want %v", got, tt.want)
			}
		})
	}
}
