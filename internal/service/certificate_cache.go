package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// CertificateCache holds public verification views keyed by certificate code.
type CertificateCache interface {
	Get(ctx context.Context, code string) (*CertificateView, bool)
	Set(ctx context.Context, view *CertificateView)
	Delete(ctx context.Context, code string)
}

const certificateKeyPrefix = "certificate:"

type RedisCertificateCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisCertificateCache(rdb *redis.Client, ttl time.Duration) *RedisCertificateCache {
	return &RedisCertificateCache{Redis: rdb, TTL: ttl}
}

func (c *RedisCertificateCache) Get(ctx context.Context, code string) (*CertificateView, bool) {
	raw, err := c.Redis.Get(ctx, certificateKeyPrefix+code).Bytes()
	if err != nil {
		return nil, false
	}
	var view CertificateView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, false
	}
	return &view, true
}

func (c *RedisCertificateCache) Set(ctx context.Context, view *CertificateView) {
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	c.Redis.Set(ctx, certificateKeyPrefix+view.Code, raw, c.TTL)
}

func (c *RedisCertificateCache) Delete(ctx context.Context, code string) {
	c.Redis.Del(ctx, certificateKeyPrefix+code)
}
