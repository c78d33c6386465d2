package store

import (
	"context"
	"encoding/json"
	"time"
)

// SimilarityCache memoizes ranking responses keyed by (subjectKey, signature).
// Writes are idempotent overwrites; entries are never authoritative data and
// may be regenerated at any time.
type SimilarityCache interface {
	PutRanking(ctx context.Context, subjectKey, signature string, payload any) error
	GetRanking(ctx context.Context, subjectKey, signature string) (string, error)
}

type RedisSimilarityCache struct {
	kv  KV
	ttl time.Duration
}

func NewRedisSimilarityCache(kv KV, ttl time.Duration) *RedisSimilarityCache {
	return &RedisSimilarityCache{kv: kv, ttl: ttl}
}

func rankingKey(subjectKey, signature string) string {
	return "similar:" + subjectKey + ":" + signature
}

func (c *RedisSimilarityCache) PutRanking(ctx context.Context, subjectKey, signature string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, rankingKey(subjectKey, signature), string(b), c.ttl)
}

func (c *RedisSimilarityCache) GetRanking(ctx context.Context, subjectKey, signature string) (string, error) {
	return c.kv.Get(ctx, rankingKey(subjectKey, signature))
}
