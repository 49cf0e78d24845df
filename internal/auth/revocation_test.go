package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokedTokenFailsVerify(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	issuer := NewTokenIssuer("secret", time.Hour).WithRevocations(NewRedisRevocations(client))
	ctx := context.Background()

	first, err := issuer.Issue(9)
	require.NoError(t, err)
	second, err := issuer.Issue(9)
	require.NoError(t, err)

	claims, err := issuer.Verify(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.UserID)
	assert.NotEmpty(t, claims.TokenID)

	require.NoError(t, issuer.Revoke(ctx, claims))

	_, err = issuer.Verify(ctx, first)
	assert.True(t, errors.Is(err, ErrRevokedToken))

	// Other tokens of the same user stay valid.
	_, err = issuer.Verify(ctx, second)
	assert.NoError(t, err)

	// The revocation lives exactly as long as the token would have.
	ttl := mr.TTL("auth:revoked:" + claims.TokenID)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestRevokeIgnoresExpiredTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisRevocations(client)
	require.NoError(t, store.Revoke(context.Background(), "gone", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("auth:revoked:gone"))
}

func TestVerifyFailsClosedWhenStoreIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	issuer := NewTokenIssuer("secret", time.Hour).WithRevocations(NewRedisRevocations(client))
	token, err := issuer.Issue(3)
	require.NoError(t, err)

	mr.Close()
	_, err = issuer.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestNoopRevocationsKeepTokensValid(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	ctx := context.Background()

	token, err := issuer.Issue(4)
	require.NoError(t, err)
	claims, err := issuer.Verify(ctx, token)
	require.NoError(t, err)
	require.NoError(t, issuer.Revoke(ctx, claims))

	_, err = issuer.Verify(ctx, token)
	assert.NoError(t, err)
}
