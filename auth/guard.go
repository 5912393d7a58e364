package auth

import (
	"sync"
	"time"
)

// GuardConfig configures a FailureGuard.
type GuardConfig struct {
	// Window is how long a failed attempt counts.
	// Default: 1 hour
	Window time.Duration

	// AlertAfter is the failure count at which the guard reports a client
	// as suspicious.
	// Default: 10
	AlertAfter int

	// BlockAfter is the failure count at which a client is refused.
	// Default: 20
	BlockAfter int
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.Window <= 0 {
		c.Window = time.Hour
	}
	if c.AlertAfter <= 0 {
		c.AlertAfter = 10
	}
	if c.BlockAfter <= 0 {
		c.BlockAfter = 20
	}
	return c
}

// GuardStats is a snapshot of a FailureGuard.
type GuardStats struct {
	BlockedClients int `json:"blocked_clients"`
	FailedAttempts int `json:"failed_attempts_last_window"`
}

// FailureGuard counts failed authentication attempts per client over a
// sliding window.
type FailureGuard struct {
	config GuardConfig
	now    func() time.Time

	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewFailureGuard creates a guard.
func NewFailureGuard(config GuardConfig) *FailureGuard {
	return &FailureGuard{
		config:   config.withDefaults(),
		now:      time.Now,
		attempts: make(map[string][]time.Time),
	}
}

// RecordFailure notes a failed attempt by client and returns how many
// failures it has within the window. An empty client is not tracked.
func (g *FailureGuard) RecordFailure(client string) int {
	if client == "" {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	recent := append(g.prune(client, now), now)
	g.attempts[client] = recent
	return len(recent)
}

// Suspicious reports whether count has just reached the alert threshold.
func (g *FailureGuard) Suspicious(count int) bool {
	return count == g.config.AlertAfter
}

// Blocked reports whether client has reached the block threshold.
func (g *FailureGuard) Blocked(client string) bool {
	if client == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prune(client, g.now())) >= g.config.BlockAfter
}

// Stats prunes expired attempts and returns the current counts.
func (g *FailureGuard) Stats() GuardStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	var s GuardStats
	for client := range g.attempts {
		recent := g.prune(client, now)
		s.FailedAttempts += len(recent)
		if len(recent) >= g.config.BlockAfter {
			s.BlockedClients++
		}
	}
	return s
}

// prune drops attempts older than the window. The caller holds g.mu.
func (g *FailureGuard) prune(client string, now time.Time) []time.Time {
	cutoff := now.Add(-g.config.Window)
	attempts := g.attempts[client]
	i := 0
	for i < len(attempts) && !attempts[i].After(cutoff) {
		i++
	}
	recent := attempts[i:]
	if len(recent) == 0 {
		delete(g.attempts, client)
		return nil
	}
	g.attempts[client] = recent
	return recent
}
