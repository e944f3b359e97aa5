package tts

import (
	"sync"
	"time"
)

type audioEntry struct {
	audio []byte
	at    time.Time
}

// audioCache evicts the oldest entry when full.
type audioCache struct {
	mu      sync.Mutex
	entries map[string]audioEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func newAudioCache(maxSize int, ttl time.Duration) *audioCache {
	return &audioCache{entries: make(map[string]audioEntry), maxSize: maxSize, ttl: ttl, now: time.Now}
}

func (c *audioCache) get(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().Sub(e.at) >= c.ttl {
		delete(c.entries, key)
		return nil
	}
	return e.audio
}

func (c *audioCache) set(key string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldest == "" || e.at.Before(oldestAt) {
				oldest, oldestAt = k, e.at
			}
		}
		delete(c.entries, oldest)
	}
	c.entries[key] = audioEntry{audio: audio, at: c.now()}
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker opens after maxFailures consecutive failures and lets one call
// through once retryAfter has passed.
type breaker struct {
	mu          sync.Mutex
	maxFailures int
	retryAfter  time.Duration
	failures    int
	lastFailure time.Time
	state       breakerState
}

func (b *breaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen {
		if time.Since(b.lastFailure) > b.retryAfter {
			b.state = breakerHalfOpen
			return false
		}
		return true
	}
	return false
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	b.failures = 0
	b.state = breakerClosed
	b.mu.Unlock()
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	if b.failures >= b.maxFailures || b.state == breakerHalfOpen {
		b.state = breakerOpen
	}
}
