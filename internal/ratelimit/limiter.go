// Package ratelimit provides respawn protection: a restarted job does not ask
// OVH for another dump while the newest one is still fresh.
package ratelimit

import (
	"fmt"
	"time"
)

// Config holds configuration for respawn protection.
type Config struct {
	// MinInterval is the minimum age of the newest dump before a new one is
	// created. Zero disables the protection.
	MinInterval time.Duration

	// ForceBackup overrides the protection when true.
	ForceBackup bool
}

// Decision is the outcome of a respawn check.
type Decision struct {
	Allow  bool
	Reason string
}

// Limiter decides whether a new dump may be created.
type Limiter struct {
	config Config
	now    func() time.Time
}

// New creates a limiter.
func New(config Config) *Limiter {
	return &Limiter{config: config, now: time.Now}
}

// Enabled reports whether Decide can ever deny a dump.
func (l *Limiter) Enabled() bool {
	return !l.config.ForceBackup && l.config.MinInterval > 0
}

// Decide checks the creation time of the newest existing dump.
func (l *Limiter) Decide(newest time.Time) Decision {
	if l.config.ForceBackup {
		return Decision{Allow: true, Reason: "forced backup requested"}
	}
	if l.config.MinInterval <= 0 {
		return Decision{Allow: true, Reason: "respawn protection disabled"}
	}
	if newest.IsZero() {
		return Decision{Allow: true, Reason: "no previous dump found"}
	}

	age := l.now().Sub(newest)
	if age < l.config.MinInterval {
		return Decision{
			Allow: false,
			Reason: fmt.Sprintf("newest dump was created %s ago, next dump allowed in %s",
				formatDuration(age), formatDuration(l.config.MinInterval-age)),
		}
	}

	return Decision{Allow: true, Reason: fmt.Sprintf("newest dump was created %s ago", formatDuration(age))}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0f minutes", d.Minutes())
	}
	return fmt.Sprintf("%.1f hours", d.Hours())
}
