// Package selector computes ordered target selections and derived
// properties over the cache store. Every function here is pure given its
// inputs (spec.md §4.3): no function here performs I/O beyond reading
// already-open storage.Session state, and none mutates it.
package selector

import (
	"strings"

	"github.com/cogbot/cogbot/pkg/types"
)

// FortCurrentStatus implements FortTarget.current_status.
func FortCurrentStatus(t *types.FortTarget, contributionSum int) int {
	if contributionSum > t.FortStatus {
		return contributionSum
	}
	return t.FortStatus
}

// FortMissing implements FortTarget.missing.
func FortMissing(t *types.FortTarget, currentStatus int) int {
	m := t.Trigger - currentStatus
	if m < 0 {
		return 0
	}
	return m
}

// IsFortified implements the override-aware form of is_fortified, the
// form spec.md §9's Open Question resolves as authoritative.
func IsFortified(t *types.FortTarget, currentStatus int) bool {
	return t.FortOverride >= 1 || currentStatus >= t.Trigger
}

// IsFortifiedRaw is the non-override form, kept only so a reparse can
// detect and log the discrepancy between the two definitions (spec.md
// §9's Open Question).
func IsFortifiedRaw(currentStatus, trigger int) bool {
	return currentStatus >= trigger
}

// IsUndermined implements FortTarget.is_undermined.
func IsUndermined(t *types.FortTarget) bool {
	return t.Undermine >= 1
}

// IsMedium implements FortTarget.is_medium.
func IsMedium(t *types.FortTarget) bool {
	return containsFold(t.Notes, "s/m")
}

// IsPriority implements FortTarget.is_priority.
func IsPriority(t *types.FortTarget) bool {
	return containsFold(t.Notes, "priority")
}

// IsSkipped implements FortTarget.is_skipped.
func IsSkipped(t *types.FortTarget) bool {
	return containsFold(t.Notes, "leave") || containsFold(t.Notes, "skip")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// UmControlMissing implements UmTarget.missing for subkind control.
func UmControlMissing(t *types.UmTarget, contributionSum int) int {
	progress := t.ProgressUs
	if contributionSum+t.MapOffset > progress {
		progress = contributionSum + t.MapOffset
	}
	return t.Goal - progress
}

// IsUmUndermined implements UmTarget.is_undermined for subkind control;
// expansion targets are never reported undermined here (spec.md §4.3:
// "resolved only at cycle tick").
func IsUmUndermined(t *types.UmTarget, missing int) bool {
	if t.Subkind == types.UmSubkindExpansion {
		return false
	}
	return missing <= 0
}

// ExpansionProgressLabel formats an expansion target's lead/trail state as
// "leading by X%" or "behind by X%".
func ExpansionProgressLabel(t *types.UmTarget) string {
	diff := float64(t.ProgressUs) - t.ProgressThem
	if diff >= 0 {
		return formatPercent("leading by", diff)
	}
	return formatPercent("behind by", -diff)
}

func formatPercent(prefix string, pct float64) string {
	return prefix + " " + trimTrailingZeros(pct) + "%"
}
