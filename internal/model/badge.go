package model

// TrustBadge is the discrete trust label shown to consumers of a subject.
type TrustBadge string

// Trust badge constants, ordered from most to least trusted.
const (
	BadgeVerified   TrustBadge = "verified"
	BadgeHigh       TrustBadge = "high"
	BadgeMedium     TrustBadge = "medium"
	BadgeLow        TrustBadge = "low"
	BadgeUnverified TrustBadge = "unverified"
)

// ConfidenceTier classifies how well-supported an auto-filled field value is.
type ConfidenceTier string

// Confidence tier constants.
const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
	TierNone   ConfidenceTier = "none"
)

// Rank returns a comparable ordering for tiers (higher = more trusted).
func (t ConfidenceTier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}
