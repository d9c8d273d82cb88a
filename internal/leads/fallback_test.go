package leads

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/oneroot-leads/internal/localstore"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// appendFromBoth appends perInstance leads through each store concurrently
// and returns the phones that were reported durable.
func appendFromBoth(t *testing.T, a, b *FallbackStore, perInstance int) []string {
	t.Helper()
	ctx := context.Background()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		durable []string
	)
	for i, store := range []*FallbackStore{a, b} {
		for n := 0; n < perInstance; n++ {
			wg.Add(1)
			go func(store *FallbackStore, phone string) {
				defer wg.Done()
				if store.Append(ctx, Lead{PhoneNumber: phone, Source: SourceWebsite}) {
					mu.Lock()
					durable = append(durable, phone)
					mu.Unlock()
				}
			}(store, fmt.Sprintf("+91%d0000%05d", 6+i, n))
		}
	}
	wg.Wait()
	return durable
}

func assertAllStored(t *testing.T, store *FallbackStore, durable []string) {
	t.Helper()
	all, err := store.ExportAll(context.Background())
	require.NoError(t, err)
	stored := make([]string, 0, len(all))
	for _, l := range all {
		stored = append(stored, l.PhoneNumber)
	}
	assert.ElementsMatch(t, durable, stored)
}

func TestFallbackStoreSharedFileKeepsEveryAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")
	logger := logging.New("error")

	first, err := localstore.NewFileStore(path, logger)
	require.NoError(t, err)
	second, err := localstore.NewFileStore(path, logger)
	require.NoError(t, err)

	a := NewFallbackStore(first, logger, nil)
	b := NewFallbackStore(second, logger, nil)

	durable := appendFromBoth(t, a, b, 15)
	require.Len(t, durable, 30)
	assertAllStored(t, a, durable)
	assertAllStored(t, b, durable)
}

func TestFallbackStoreSharedRedisKeepsEveryAppend(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")
	newStore := func() *FallbackStore {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewFallbackStore(localstore.NewRedisStore(client), logger, nil)
	}
	a, b := newStore(), newStore()

	durable := appendFromBoth(t, a, b, 20)
	require.Len(t, durable, 40)
	assertAllStored(t, a, durable)
	assertAllStored(t, b, durable)
}
