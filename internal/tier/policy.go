// Package tier evaluates subscription tier limits against live team counts.
package tier

import (
	"github.com/stridehq/stride/internal/config"
)

// Unlimited marks a cap that is never enforced.
const Unlimited = -1

// Policy answers capacity questions for a subscription tier. Limits come
// from the hot-reloadable tier config, so answers may change between calls.
type Policy struct {
	holder *config.TierConfigHolder
}

func NewPolicy(holder *config.TierConfigHolder) *Policy {
	return &Policy{holder: holder}
}

// LimitsFor returns the limits for the given tier. Unknown tiers get the
// free tier limits, the most restrictive set we have.
func (p *Policy) LimitsFor(tier string) config.TierLimits {
	cfg := p.holder.Get()
	switch tier {
	case "STANDARD":
		return cfg.Standard
	case "PREMIUM":
		return cfg.Premium
	default:
		return cfg.Free
	}
}

// CanAddAthlete reports whether a team on tier with currentCount active
// athletes can roster one more.
func (p *Policy) CanAddAthlete(tier string, currentCount int64) bool {
	limits := p.LimitsFor(tier)
	if limits.MaxAthletes == Unlimited {
		return true
	}
	return currentCount < int64(limits.MaxAthletes)
}

// CanAddAdmin reports whether a team on tier with currentCount active
// admin-or-above members can add one more.
func (p *Policy) CanAddAdmin(tier string, currentCount int64) bool {
	limits := p.LimitsFor(tier)
	if limits.MaxAdmins == Unlimited {
		return true
	}
	return currentCount < int64(limits.MaxAdmins)
}

// FitsTier reports whether the given counts fit inside tier. Used when
// validating a downgrade so existing rosters cannot exceed the new caps.
func (p *Policy) FitsTier(tier string, athleteCount, adminCount int64) bool {
	limits := p.LimitsFor(tier)
	if limits.MaxAthletes != Unlimited && athleteCount > int64(limits.MaxAthletes) {
		return false
	}
	if limits.MaxAdmins != Unlimited && adminCount > int64(limits.MaxAdmins) {
		return false
	}
	return true
}
