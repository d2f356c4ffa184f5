// Package cache 练习答案的 Redis 缓存，Redis 未配置时所有方法退化为空操作
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"cofq_backend/pkg/logger"
	"cofq_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "cofq:answer:"

type Stats struct {
	Enabled bool  `json:"enabled"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
}

type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewAnswerCache client 为 nil 时返回 nil，调用方无需判断
func NewAnswerCache(client *redis.Client, ttl time.Duration) *AnswerCache {
	if client == nil {
		return nil
	}
	return &AnswerCache{client: client, ttl: ttl}
}

func (c *AnswerCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key 对各部分做归一化后取 sha256
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(Normalize(p)))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Normalize 小写并折叠空白
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Get 命中时把值解码到 dst
func (c *AnswerCache) Get(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		return false
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Answer cache get failed", zap.String("key", key), zap.Error(err))
		}
		c.miss()
		return false
	}

	if err := json.Unmarshal(val, dst); err != nil {
		logger.Log.Warn("Answer cache entry is corrupt", zap.String("key", key), zap.Error(err))
		c.miss()
		return false
	}

	c.hits.Add(1)
	monitoring.ObserveCacheLookup(true)
	return true
}

func (c *AnswerCache) Set(ctx context.Context, key string, value any) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		logger.Log.Warn("Answer cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Log.Warn("Answer cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.sets.Add(1)
}

func (c *AnswerCache) Delete(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logger.Log.Warn("Answer cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *AnswerCache) Stats() Stats {
	if !c.Enabled() {
		return Stats{}
	}
	return Stats{
		Enabled: true,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
	}
}

func (c *AnswerCache) miss() {
	c.misses.Add(1)
	monitoring.ObserveCacheLookup(false)
}
