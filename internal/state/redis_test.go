package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/model"
)

func TestNewRedisHolder_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisHolder(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisHolder_Keys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	h := newRedisHolder(client, config.RedisConfig{KeyPrefix: "clinic-a:", TTLHours: 2})
	assert.Equal(t, "clinic-a:call", h.callKey)
	assert.Equal(t, "clinic-a:video", h.videoKey)
	assert.Equal(t, 2*time.Hour, h.ttl)
}

func TestRedisHolder_RejectsIncompleteCallWithoutTouchingRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	h := newRedisHolder(client, config.RedisConfig{KeyPrefix: "x:"})
	_, err := h.SetCall(context.Background(), model.CallRequest{Name: "Ana"})
	assert.ErrorIs(t, err, ErrInvalidCall)
}

func TestDecodeCall(t *testing.T) {
	call, err := decodeCall([]byte(`{"id":5,"name":"Maria","doctor":"Dr. Souza","room":"Consultório 2","timestamp":4}`))
	require.NoError(t, err)
	assert.Equal(t, model.Call{ID: 5, Name: "Maria", Doctor: "Dr. Souza", Room: "Consultório 2", Timestamp: 4}, *call)

	_, err = decodeCall([]byte(`{broken`))
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	h, err := New(context.Background(), config.StateConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryHolder{}, h)

	_, err = New(context.Background(), config.StateConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestRedisHolder_StoresCallAsJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	h := newMiniredisHolder(t, mr, config.RedisConfig{KeyPrefix: "clinic-call:"})

	call, err := h.SetCall(context.Background(), model.CallRequest{Name: "Maria", Doctor: "Dr. Souza", Room: "Consultório 2"})
	require.NoError(t, err)

	raw, err := mr.Get("clinic-call:call")
	require.NoError(t, err)
	stored, err := decodeCall([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, call, *stored)
}

func TestRedisHolder_ClearingVideoDeletesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	h := newMiniredisHolder(t, mr, config.RedisConfig{KeyPrefix: "clinic-call:"})
	ctx := context.Background()

	_, err := h.SetVideo(ctx, "https://youtu.be/abc")
	require.NoError(t, err)
	assert.True(t, mr.Exists("clinic-call:video"))

	_, err = h.SetVideo(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, mr.Exists("clinic-call:video"))
}

func TestRedisHolder_MissingKeysAreNil(t *testing.T) {
	mr := miniredis.RunT(t)
	h := newMiniredisHolder(t, mr, config.RedisConfig{KeyPrefix: "clinic-call:"})
	ctx := context.Background()

	call, err := h.Call(ctx)
	require.NoError(t, err)
	assert.Nil(t, call)
	video, err := h.Video(ctx)
	require.NoError(t, err)
	assert.Nil(t, video)

	mr.Set("clinic-call:call", "{broken")
	_, err = h.Call(ctx)
	assert.Error(t, err)
}

func TestRedisHolder_StaysAboveOtherReplica(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.RedisConfig{KeyPrefix: "clinic-call:"}
	a := newMiniredisHolder(t, mr, cfg)
	b := newMiniredisHolder(t, mr, cfg)
	// Replica b runs with a clock far behind replica a.
	b.clock.now = func() time.Time { return time.UnixMilli(1_000) }
	ctx := context.Background()

	first, err := a.SetCall(ctx, model.CallRequest{Name: "Ana", Doctor: "Dra. Lima", Room: "Sala 1"})
	require.NoError(t, err)
	second, err := b.SetCall(ctx, model.CallRequest{Name: "João", Doctor: "Dr. Souza", Room: "Sala 2"})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	current, err := a.Call(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, *current, "last write wins across replicas")
}

func TestRedisHolder_TTL(t *testing.T) {
	ctx := context.Background()
	req := model.CallRequest{Name: "Maria", Doctor: "Dr. Souza", Room: "Sala 1"}

	t.Run("No TTL keeps the call", func(t *testing.T) {
		mr := miniredis.RunT(t)
		h := newMiniredisHolder(t, mr, config.RedisConfig{KeyPrefix: "p:"})
		_, err := h.SetCall(ctx, req)
		require.NoError(t, err)

		assert.Zero(t, mr.TTL("p:call"))
		mr.FastForward(48 * time.Hour)
		current, err := h.Call(ctx)
		require.NoError(t, err)
		assert.NotNil(t, current)
	})

	t.Run("Configured TTL expires the call", func(t *testing.T) {
		mr := miniredis.RunT(t)
		h := newMiniredisHolder(t, mr, config.RedisConfig{KeyPrefix: "p:", TTLHours: 2})
		_, err := h.SetCall(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, 2*time.Hour, mr.TTL("p:call"))
		mr.FastForward(3 * time.Hour)
		current, err := h.Call(ctx)
		require.NoError(t, err)
		assert.Nil(t, current)
	})
}
