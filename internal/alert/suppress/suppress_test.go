package suppress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "failed-login-spike:tenant-a", Key("failed-login-spike", "tenant-a"))
	assert.Equal(t, "cross-tenant-access:global", Key("cross-tenant-access", ""))
}

func TestMemory_FirstClaimWins(t *testing.T) {
	dedup := NewMemory()
	ctx := context.Background()

	claimed, err := dedup.Claim(ctx, "rule:tenant", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = dedup.Claim(ctx, "rule:tenant", 15*time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestMemory_ClaimExpires(t *testing.T) {
	dedup := NewMemory()
	now := time.Now()
	dedup.Now = func() time.Time { return now }
	ctx := context.Background()

	claimed, err := dedup.Claim(ctx, "rule:tenant", 15*time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	now = now.Add(16 * time.Minute)
	claimed, err = dedup.Claim(ctx, "rule:tenant", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemory_ReleaseFreesTheKey(t *testing.T) {
	dedup := NewMemory()
	ctx := context.Background()

	claimed, err := dedup.Claim(ctx, "rule:tenant", 15*time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, dedup.Release(ctx, "rule:tenant"))

	claimed, err = dedup.Claim(ctx, "rule:tenant", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	dedup := NewMemory()
	ctx := context.Background()

	claimed, err := dedup.Claim(ctx, "rule:tenant-a", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = dedup.Claim(ctx, "rule:tenant-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}
