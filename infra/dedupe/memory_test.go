package dedupe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduper_ClaimAndRelease(t *testing.T) {
	d := NewMemoryDeduper(time.Minute)
	ctx := context.Background()

	ok, err := d.Claim(ctx, "f00d")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Claim(ctx, "f00d")
	assert.False(t, ok, "second claim is a duplicate")

	require.NoError(t, d.Release(ctx, "f00d"))
	ok, _ = d.Claim(ctx, "f00d")
	assert.True(t, ok, "released fingerprint can be claimed again")
}

func TestMemoryDeduper_Expiry(t *testing.T) {
	d := NewMemoryDeduper(time.Minute)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := d.Claim(ctx, "f00d")
	require.True(t, ok)

	now = now.Add(59 * time.Second)
	ok, _ = d.Claim(ctx, "f00d")
	assert.False(t, ok)

	now = now.Add(time.Second)
	ok, _ = d.Claim(ctx, "f00d")
	assert.True(t, ok)
}

func TestMemoryDeduper_ConcurrentClaims(t *testing.T) {
	d := NewMemoryDeduper(0)
	assert.Equal(t, DefaultTTL, d.ttl)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := d.Claim(context.Background(), "same"); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}
