// Package cache provides a Redis-backed cache for latest risk assessments.
// All operations are best-effort: a nil client is valid and turns every
// call into a no-op, so the API works without Redis configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	latestRiskKeyPrefix = "risk:latest:"
	latestRiskTTL       = 24 * time.Hour
)

type Client struct {
	rdb *goredis.Client
}

// New connects to Redis at the given address or redis:// URL.
// An empty address returns a nil client, which disables caching.
func New(ctx context.Context, addr string) (*Client, error) {
	if addr == "" {
		return nil, nil
	}

	var opts *goredis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: addr}
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// SetLatestRisk stores the latest risk assessment for a patient as JSON.
func (c *Client) SetLatestRisk(ctx context.Context, patientID string, value any) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling risk for cache: %w", err)
	}
	return c.rdb.Set(ctx, latestRiskKeyPrefix+patientID, data, latestRiskTTL).Err()
}

// GetLatestRisk loads the cached latest risk assessment into dest.
// Returns false when the key is absent or caching is disabled.
func (c *Client) GetLatestRisk(ctx context.Context, patientID string, dest any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	data, err := c.rdb.Get(ctx, latestRiskKeyPrefix+patientID).Bytes()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshaling cached risk: %w", err)
	}
	return true, nil
}

// InvalidateLatestRisk drops the cached risk entry for a patient.
func (c *Client) InvalidateLatestRisk(ctx context.Context, patientID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, latestRiskKeyPrefix+patientID).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
