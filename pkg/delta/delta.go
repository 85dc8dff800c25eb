// Package delta computes the additions and removals that move a destination
// from its current membership to the desired one, and gates large changes.
package delta

import (
	"github.com/openfga/membersync/pkg/membership"
)

// Options controls a single delta computation. Thresholds are percentages.
type Options struct {
	// Exclusionary marks desired as the list of members to remove rather than
	// the full target state.
	Exclusionary bool

	ThresholdAdd    float64
	ThresholdRemove float64

	// IgnoreThresholdOnce lets this computation through even when it exceeds a threshold.
	IgnoreThresholdOnce bool

	// DryRun computes the delta without it ever being applied, so it never violates.
	DryRun bool
}

// Result is the outcome of [Calculate]. Members of Additions carry
// [membership.ActionAdd], members of Removals [membership.ActionRemove].
type Result struct {
	Additions membership.Set
	Removals  membership.Set

	// AdditionPercentage and RemovalPercentage are relative to the size of the
	// current membership and lie in [0, 100].
	AdditionPercentage float64
	RemovalPercentage  float64

	// ExceedsAdd and ExceedsRemove report the raw comparison against the
	// thresholds, before IgnoreThresholdOnce and DryRun are taken into account.
	ExceedsAdd    bool
	ExceedsRemove bool

	ViolatesThreshold bool
	DryRun            bool
}

// IsEmpty reports whether the result changes nothing.
func (r Result) IsEmpty() bool {
	return r.Additions.Len() == 0 && r.Removals.Len() == 0
}

// Calculate computes the delta from current to desired. It is pure and never
// mutates its inputs.
//
// In the default mode additions are desired \ current and removals are
// current \ desired. In exclusionary mode desired lists members to remove, so
// additions are empty and removals are current ∩ desired.
func Calculate(desired, current membership.Set, opts Options) Result {
	additions := make(membership.Set)
	removals := make(membership.Set)

	if opts.Exclusionary {
		for id := range desired {
			if current.Contains(id) {
				removals[id] = membership.MemberIdentity{ID: id, Action: membership.ActionRemove}
			}
		}
	} else {
		for id := range desired {
			if !current.Contains(id) {
				additions[id] = membership.MemberIdentity{ID: id, Action: membership.ActionAdd}
			}
		}
		for id := range current {
			if !desired.Contains(id) {
				removals[id] = membership.MemberIdentity{ID: id, Action: membership.ActionRemove}
			}
		}
	}

	addPct := percentage(len(additions), len(current))
	removePct := percentage(len(removals), len(current))

	exceedsAdd := addPct > opts.ThresholdAdd
	exceedsRemove := removePct > opts.ThresholdRemove

	return Result{
		Additions:          additions,
		Removals:           removals,
		AdditionPercentage: addPct,
		RemovalPercentage:  removePct,
		ExceedsAdd:         exceedsAdd,
		ExceedsRemove:      exceedsRemove,
		ViolatesThreshold:  (exceedsAdd || exceedsRemove) && !opts.IgnoreThresholdOnce && !opts.DryRun,
		DryRun:             opts.DryRun,
	}
}

// percentage returns n relative to base, clamped to 100. An empty base counts as one.
func percentage(n, base int) float64 {
	pct := float64(n) / float64(max(1, base)) * 100
	return min(pct, 100)
}
