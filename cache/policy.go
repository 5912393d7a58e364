package cache

import "time"

// Policy bounds the TTLs the adapter will write.
type Policy struct {
	// MaxTTL caps every write. Zero means no cap.
	MaxTTL time.Duration

	// Disabled turns every read into a miss and every write into a no-op.
	Disabled bool
}

// DefaultPolicy caps entries at one hour, the longest catalog tier.
func DefaultPolicy() Policy {
	return Policy{MaxTTL: time.Hour}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{Disabled: true}
}

// ShouldCache reports whether an entry with ttl would be written.
func (p Policy) ShouldCache(ttl time.Duration) bool {
	return !p.Disabled && ttl > 0
}

// EffectiveTTL clamps ttl to MaxTTL. Non-positive input stays non-positive.
func (p Policy) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}
