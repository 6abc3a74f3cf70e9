// Package entitlement is the single place access decisions are made. Every
// endpoint that gates on purchase entitlement calls HasEffectiveAccess
// instead of re-deriving the expiry rules.
package entitlement

import (
	"time"

	"github.com/dukerupert/cvforge/internal/model"
)

// HasEffectiveAccess reports whether the customer currently has access:
// HasAccess must be set and AccessExpiresAt must be present and not in the
// past. A missing expiry with HasAccess set is treated as no access.
func HasEffectiveAccess(c *model.Customer, now time.Time) bool {
	if c == nil || !c.HasAccess {
		return false
	}
	if c.AccessExpiresAt == nil {
		return false
	}
	return !now.After(*c.AccessExpiresAt)
}

// GrantPeriod is how long a purchase entitles access.
const GrantPeriod = 365 * 24 * time.Hour

// Extend computes the new expiry for a grant or renewal: period from the
// current expiry when it is still in the future, otherwise from now. Stores
// apply this rule inside their grant write so concurrent renewals stack.
func Extend(current *time.Time, now time.Time, period time.Duration) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.Add(period)
}
