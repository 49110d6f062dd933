package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/model"
)

// RedisHolder shares state between several server replicas through redis.
// Keys expire after the configured TTL when one is set; this is not a
// durability layer.
type RedisHolder struct {
	client   *redis.Client
	callKey  string
	videoKey string
	ttl      time.Duration
	clock    *idClock
}

// NewRedisHolder connects to redis and verifies the connection with a PING.
func NewRedisHolder(ctx context.Context, cfg config.RedisConfig) (*RedisHolder, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
	}
	return newRedisHolder(client, cfg), nil
}

func newRedisHolder(client *redis.Client, cfg config.RedisConfig) *RedisHolder {
	return &RedisHolder{
		client:   client,
		callKey:  cfg.KeyPrefix + "call",
		videoKey: cfg.KeyPrefix + "video",
		ttl:      time.Duration(cfg.TTLHours) * time.Hour,
		clock:    newIDClock(),
	}
}

func (h *RedisHolder) SetCall(ctx context.Context, req model.CallRequest) (model.Call, error) {
	req, err := normalizeCall(req)
	if err != nil {
		return model.Call{}, err
	}

	// Another replica may have issued a newer id; stay above it.
	var floor int64
	if current, err := h.Call(ctx); err == nil && current != nil {
		floor = current.ID
	}

	id, ts := h.clock.next(floor)
	call := model.Call{
		ID:        id,
		Name:      req.Name,
		Doctor:    req.Doctor,
		Room:      req.Room,
		Timestamp: ts,
	}

	raw, err := json.Marshal(call)
	if err != nil {
		return model.Call{}, fmt.Errorf("failed to encode call: %w", err)
	}
	if err := h.client.Set(ctx, h.callKey, raw, h.ttl).Err(); err != nil {
		return model.Call{}, fmt.Errorf("failed to store call: %w", err)
	}
	return call, nil
}

func (h *RedisHolder) Call(ctx context.Context) (*model.Call, error) {
	raw, err := h.client.Get(ctx, h.callKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load call: %w", err)
	}
	return decodeCall(raw)
}

func (h *RedisHolder) SetVideo(ctx context.Context, url string) (*string, error) {
	v := normalizeVideo(url)
	if v == nil {
		if err := h.client.Del(ctx, h.videoKey).Err(); err != nil {
			return nil, fmt.Errorf("failed to clear video: %w", err)
		}
		return nil, nil
	}
	if err := h.client.Set(ctx, h.videoKey, *v, h.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}
	return v, nil
}

func (h *RedisHolder) Video(ctx context.Context) (*string, error) {
	v, err := h.client.Get(ctx, h.videoKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}
	return &v, nil
}

func (h *RedisHolder) Close() error {
	return h.client.Close()
}

func decodeCall(raw []byte) (*model.Call, error) {
	var call model.Call
	if err := json.Unmarshal(raw, &call); err != nil {
		return nil, fmt.Errorf("failed to decode stored call: %w", err)
	}
	return &call, nil
}
