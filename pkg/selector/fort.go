package selector

import (
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// loadedTarget pairs a FortTarget with its already-computed current
// status, so every derived predicate below is pure arithmetic and the
// session is touched exactly once per target.
type loadedTarget struct {
	target        *types.FortTarget
	currentStatus int
}

func loadFortTargets(sess *storage.Session) ([]loadedTarget, error) {
	targets, err := sess.ListFortTargets()
	if err != nil {
		return nil, err
	}
	out := make([]loadedTarget, 0, len(targets))
	for _, t := range targets {
		sum, err := sess.SumFortContributions(t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, loadedTarget{target: t, currentStatus: FortCurrentStatus(t, sum)})
	}
	return out, nil
}

func (lt loadedTarget) missing() int {
	return FortMissing(lt.target, lt.currentStatus)
}

func (lt loadedTarget) fortified() bool {
	return IsFortified(lt.target, lt.currentStatus)
}

// eligible reports whether lt is a candidate for fort_current/fort_next:
// kind fort, not skipped, not already fortified, and not within the
// deferral band.
func (lt loadedTarget) eligible(deferThreshold int) bool {
	if lt.target.Kind != types.FortTargetFort {
		return false
	}
	if IsSkipped(lt.target) {
		return false
	}
	if lt.fortified() {
		return false
	}
	m := lt.missing()
	if m > 0 && m <= deferThreshold {
		return false
	}
	return true
}

func preps(all []loadedTarget) []*types.FortTarget {
	var out []*types.FortTarget
	for _, lt := range all {
		if lt.target.Kind == types.FortTargetPrep {
			out = append(out, lt.target)
		}
	}
	return out
}

// FortCurrent implements spec.md §4.3's fort_current: if a manual order
// exists, it alone determines the (single) current target; otherwise the
// default sheet-order scan applies, with a medium-only target paired with
// the next eligible non-medium target. Prep targets are always appended.
func FortCurrent(sess *storage.Session, deferThreshold int) ([]*types.FortTarget, error) {
	overrides, err := sess.ListFortOrderOverrides()
	if err != nil {
		return nil, err
	}
	all, err := loadFortTargets(sess)
	if err != nil {
		return nil, err
	}

	if len(overrides) > 0 {
		first, err := firstUnfortifiedOverride(sess, overrides)
		if err != nil {
			return nil, err
		}
		if first == nil {
			return preps(all), nil
		}
		return append([]*types.FortTarget{first}, preps(all)...), nil
	}

	byName := make(map[string]loadedTarget, len(all))
	for _, lt := range all {
		byName[lt.target.Name] = lt
	}

	var result []*types.FortTarget
	for i, lt := range all {
		if !lt.eligible(deferThreshold) {
			continue
		}
		result = append(result, lt.target)
		if IsMedium(lt.target) {
			if secondary := firstEligibleAfter(all, i, deferThreshold); secondary != nil {
				result = append(result, secondary)
			}
		}
		break
	}
	return append(result, preps(all)...), nil
}

func firstUnfortifiedOverride(sess *storage.Session, overrides []*types.FortOrderOverride) (*types.FortTarget, error) {
	for _, o := range overrides {
		t, err := sess.GetFortTargetByName(o.TargetName)
		if err != nil {
			return nil, err
		}
		sum, err := sess.SumFortContributions(t.ID)
		if err != nil {
			return nil, err
		}
		if !IsFortified(t, FortCurrentStatus(t, sum)) {
			return t, nil
		}
	}
	return nil, nil
}

func firstEligibleAfter(all []loadedTarget, after int, deferThreshold int) *types.FortTarget {
	for i := after + 1; i < len(all); i++ {
		if all[i].eligible(deferThreshold) && !IsMedium(all[i].target) {
			return all[i].target
		}
	}
	return nil
}

// FortNext implements fort_next(n): continuing from the current target,
// return up to n additional eligible targets.
func FortNext(sess *storage.Session, deferThreshold, n int) ([]*types.FortTarget, error) {
	all, err := loadFortTargets(sess)
	if err != nil {
		return nil, err
	}
	current, err := FortCurrent(sess, deferThreshold)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(current))
	for _, t := range current {
		skip[t.Name] = true
	}

	var out []*types.FortTarget
	for _, lt := range all {
		if len(out) >= n {
			break
		}
		if skip[lt.target.Name] || !lt.eligible(deferThreshold) {
			continue
		}
		out = append(out, lt.target)
	}
	return out, nil
}

// FortDeferred implements fort_deferred(): targets with
// 0 < missing <= deferThreshold.
func FortDeferred(sess *storage.Session, deferThreshold int) ([]*types.FortTarget, error) {
	all, err := loadFortTargets(sess)
	if err != nil {
		return nil, err
	}
	var out []*types.FortTarget
	for _, lt := range all {
		m := lt.missing()
		if m > 0 && m <= deferThreshold {
			out = append(out, lt.target)
		}
	}
	return out, nil
}

// FortByState is the fort_by_state() partition: cancelled, fortified,
// undermined, skipped, left. A target may appear in more than one bucket.
type FortByState struct {
	Cancelled  []*types.FortTarget
	Fortified  []*types.FortTarget
	Undermined []*types.FortTarget
	Skipped    []*types.FortTarget
	Left       []*types.FortTarget
}

// FortPartition implements fort_by_state().
func FortPartition(sess *storage.Session) (*FortByState, error) {
	all, err := loadFortTargets(sess)
	if err != nil {
		return nil, err
	}
	var out FortByState
	for _, lt := range all {
		fortified := lt.fortified()
		undermined := IsUndermined(lt.target)
		skipped := IsSkipped(lt.target)

		if fortified {
			out.Fortified = append(out.Fortified, lt.target)
		}
		if undermined {
			out.Undermined = append(out.Undermined, lt.target)
		}
		if fortified && undermined {
			out.Cancelled = append(out.Cancelled, lt.target)
		}
		if skipped {
			out.Skipped = append(out.Skipped, lt.target)
		}
		if !fortified && !undermined && !skipped {
			out.Left = append(out.Left, lt.target)
		}
	}
	return &out, nil
}
