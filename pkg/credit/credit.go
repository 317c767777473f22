// Package credit implements the pure, side-effect-free credit/ratio
// engine. None of these functions mutate the identity
// store; callers apply the returned balance under the user store's
// per-user lock (identity.Store.WithUserLock), matching the
// ordering guarantee for balance conservation under concurrent transfers.
package credit

import (
	"math"

	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

// KiB converts a byte count to KiB, rounding down but with a minimum of
// 1 so any nonzero transfer costs at least 1 unit (2047 bytes is 1 KiB).
func KiB(bytes int64) int64 {
	if bytes <= 0 {
		return 0
	}
	kib := bytes / 1024
	if kib < 1 {
		return 1
	}
	return kib
}

// RatioOverride is a rule-engine adjustment composed multiplicatively on
// top of the section/group multiplier. The zero value (both factors 0,
// which are treated as 1.0) is a no-op.
type RatioOverride struct {
	UploadBonus     float64 // multiplies the effective upload multiplier
	CostMultiplier  float64 // multiplies the effective download multiplier
}

// NoOverride is the identity RatioOverride.
var NoOverride = RatioOverride{UploadBonus: 1, CostMultiplier: 1}

func effectiveUploadMultiplier(u *identity.User, section *identity.Section, group *identity.Group, override RatioOverride) float64 {
	mult := section.UploadMultiplier
	if group != nil {
		if o, ok := group.SectionOverride(section.Name); ok {
			mult = o.UploadMultiplier
		}
	}
	bonus := override.UploadBonus
	if bonus == 0 {
		bonus = 1
	}
	return mult * bonus
}

func effectiveDownloadMultiplier(section *identity.Section, group *identity.Group, override RatioOverride) float64 {
	mult := section.DownloadMultiplier
	if group != nil {
		if o, ok := group.SectionOverride(section.Name); ok {
			mult = o.DownloadMultiplier
		}
	}
	costMult := override.CostMultiplier
	if costMult == 0 {
		costMult = 1
	}
	return mult * costMult
}

// UploadCredits computes the KiB credit awarded for uploading bytes into
// section, honoring the user's primary group's per-section override if
// one exists, composed with an optional rule override.
func UploadCredits(u *identity.User, section *identity.Section, group *identity.Group, bytes int64, override RatioOverride) int64 {
	kib := KiB(bytes)
	if kib == 0 {
		return 0
	}
	mult := effectiveUploadMultiplier(u, section, group, override)
	return int64(math.Floor(float64(kib) * mult))
}

// DownloadCost computes the KiB cost of downloading bytes from section.
// Free-leech sections always cost 0, regardless of multipliers or
// overrides.
func DownloadCost(section *identity.Section, group *identity.Group, bytes int64, override RatioOverride) int64 {
	if section.FreeLeech {
		return 0
	}
	kib := KiB(bytes)
	if kib == 0 {
		return 0
	}
	mult := effectiveDownloadMultiplier(section, group, override)
	return int64(math.Floor(float64(kib) * mult))
}

// TryConsume attempts to deduct cost KiB from balance. It never mutates
// caller state; it returns whether the consumption would succeed and the
// resulting balance. A failed consume leaves the balance unchanged.
func TryConsume(balance, cost int64) (ok bool, newBalance int64) {
	if balance < cost {
		return false, balance
	}
	return true, balance - cost
}

// Award returns the new balance after adding credits KiB. Pure; the
// caller writes the result back under the user store lock.
func Award(balance, credits int64) int64 {
	return balance + credits
}
