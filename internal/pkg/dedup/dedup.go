package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fliplister:dedup:query:"

// Deduplicator 在 TTL 窗口内拦截重复的拉取请求。
// 身份由 keywords + condition 归一化后哈希得到，与 listing 无关，
// 同一商品换个 listing 重新分析也会被拦。
type Deduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Deduplicator{
		rdb: rdb,
		ttl: ttl,
	}
}

// IsDuplicate 返回该查询是否已在窗口内发起过，首次调用会占位。
func (d *Deduplicator) IsDuplicate(ctx context.Context, keywords, condition string) (bool, error) {
	if d == nil || d.rdb == nil || keywords == "" {
		return false, nil
	}
	key := keyPrefix + hashQuery(keywords, condition)
	ok, err := d.rdb.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !ok, nil
}

// Delete 释放占位，拉取失败后调用，让重试立即可用。
func (d *Deduplicator) Delete(ctx context.Context, keywords, condition string) error {
	if d == nil || d.rdb == nil || keywords == "" {
		return nil
	}
	key := keyPrefix + hashQuery(keywords, condition)
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("dedup del: %w", err)
	}
	return nil
}

func hashQuery(keywords, condition string) string {
	norm := strings.ToLower(strings.TrimSpace(keywords)) + "|" + strings.ToLower(strings.TrimSpace(condition))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}
