package scorer

import (
	"time"

	"github.com/reelindex/catalog-trust/internal/config"
)

// AgeDays returns the whole days elapsed since the subject was last updated.
// A zero timestamp is treated as current.
func AgeDays(updatedAt, now time.Time) int {
	if updatedAt.IsZero() || !updatedAt.Before(now) {
		return 0
	}
	return int(now.Sub(updatedAt).Hours() / 24)
}

// AgePenalty maps a record age to a stepped confidence penalty. The penalty
// is capped: stale enrichment decays trust, but historical facts do not
// become less true with time.
func AgePenalty(ageDays int, decay config.DecayConfig) float64 {
	if ageDays <= 0 {
		return 0
	}
	for _, band := range decay.Bands {
		if ageDays <= band.UpToDays {
			return band.Penalty
		}
	}
	return decay.MaxPenalty
}
