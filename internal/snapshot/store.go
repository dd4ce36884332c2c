// Package snapshot caches the most recent per-session state in Redis with
// a short TTL. The cache is a best-effort real-time convenience, never the
// system of record: an expired or missing snapshot means "no recent data",
// not "zero risk".
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// DefaultTTL matches the 30-second real-time window of the monitor
// endpoint.
const DefaultTTL = 30 * time.Second

// CacheError wraps a snapshot cache failure. Cache failures are non-fatal
// to the request; callers log them and mark the response stale.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("snapshot cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Store reads and writes session snapshots in Redis.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a Store with the given TTL. A non-positive TTL falls back to
// DefaultTTL.
func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: client, ttl: ttl}
}

// TTL returns the configured snapshot time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func key(sessionID string) string {
	return fmt.Sprintf("session:%s:realtime", sessionID)
}

// Write overwrites the session's snapshot wholesale and resets its TTL.
// The SET is a single atomic call, so readers never observe a partially
// written snapshot. Writing the same snapshot twice is indistinguishable
// from writing it once.
func (s *Store) Write(ctx context.Context, snap *models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return &CacheError{Op: "encode", Err: err}
	}

	if err := s.redis.Set(ctx, key(snap.SessionID), data, s.ttl).Err(); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	return nil
}

// Read returns the session's snapshot, or (nil, nil) when the key is
// absent or expired. Redis evicts on expiry, so a stale value is never
// served past the TTL.
func (s *Store) Read(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	data, err := s.redis.Get(ctx, key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, &CacheError{Op: "read", Err: err}
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, &CacheError{Op: "decode", Err: err}
	}
	return &snap, nil
}

// ComputeRiskLevel derives the 0-100 session risk from the active flag
// set: 10 points per high-severity flag, 20 per critical, clamped to 100.
func ComputeRiskLevel(flags []*models.Flag) float64 {
	risk := 0.0
	for _, f := range flags {
		switch f.Severity {
		case models.SeverityHigh:
			risk += 10
		case models.SeverityCritical:
			risk += 20
		}
	}
	if risk > 100 {
		risk = 100
	}
	return risk
}

// ActiveWithin filters flags to those raised within the window ending at
// now, preserving order.
func ActiveWithin(flags []*models.Flag, window time.Duration, now time.Time) []*models.Flag {
	cutoff := now.Add(-window)
	active := make([]*models.Flag, 0, len(flags))
	for _, f := range flags {
		if f.RaisedAt.After(cutoff) {
			active = append(active, f)
		}
	}
	return active
}
