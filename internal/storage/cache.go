// Package storage holds the single-slot payload cache and the archive writer.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/lueurxax/impact-brief/internal/core/domain"
)

// ErrCacheMiss is returned when the slot is empty or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheEntry is the content of the slot.
type CacheEntry struct {
	Payload     domain.Payload
	Diagnostics *domain.Diagnostics
	Body        []byte
	ETag        string
	StoredAt    time.Time
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Cache is a single mutable slot holding the last payload. Writers replace the
// slot wholesale; the last write wins.
type Cache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	entry *CacheEntry
}

// NewCache creates an empty cache whose entries live for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

// Read returns the slot if it was written less than ttl before now.
func (c *Cache) Read(now time.Time) (*CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil || c.entry.Age(now) >= c.ttl {
		return nil, ErrCacheMiss
	}

	return c.entry, nil
}

// NewEntry serializes payload and tags it with a content hash without storing
// it. payload must not carry diagnostics; they are kept next to it.
func NewEntry(payload domain.Payload, diag *domain.Diagnostics, now time.Time) (*CacheEntry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return &CacheEntry{
		Payload:     payload,
		Diagnostics: diag,
		Body:        body,
		ETag:        ETag(body),
		StoredAt:    now,
	}, nil
}

// Write builds an entry for payload and replaces the slot with it.
func (c *Cache) Write(payload domain.Payload, diag *domain.Diagnostics, now time.Time) (*CacheEntry, error) {
	entry, err := NewEntry(payload, diag, now)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()

	return entry, nil
}

// ETag returns the quoted entity tag for body.
func ETag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}
