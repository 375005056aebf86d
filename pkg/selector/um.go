package selector

import (
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// UmMeritsBySheet ranks every UmContributor on the given sheet kind by
// held+redeemed merits — the undermining-only aggregate from spec.md §9's
// Open Question #1.
func UmMeritsBySheet(sess *storage.Session, kind types.UmSheetKind) ([]MeritsEntry, error) {
	contributors, err := sess.ListUmContributors(kind)
	if err != nil {
		return nil, err
	}
	targets, err := sess.ListUmTargets(kind)
	if err != nil {
		return nil, err
	}

	totals := make(map[int64]int, len(contributors))
	for _, target := range targets {
		byContributor, err := sess.ListUmContributionsByTarget(target.ID)
		if err != nil {
			return nil, err
		}
		for contributorID, amount := range byContributor {
			totals[contributorID] += amount
		}
	}

	entries := make([]MeritsEntry, 0, len(contributors))
	for _, c := range contributors {
		entries = append(entries, MeritsEntry{Name: c.Name, Merits: totals[c.ID]})
	}
	sortRanked(entries)
	return entries, nil
}

// UmTargetView pairs an UmTarget with its computed missing/undermined
// state, for `um` handler display.
type UmTargetView struct {
	Target       *types.UmTarget
	Missing      int
	IsUndermined bool
}

// UmTargetViews computes the derived view for every target on kind.
func UmTargetViews(sess *storage.Session, kind types.UmSheetKind) ([]UmTargetView, error) {
	targets, err := sess.ListUmTargets(kind)
	if err != nil {
		return nil, err
	}
	out := make([]UmTargetView, 0, len(targets))
	for _, t := range targets {
		sum, err := sess.SumUmContribution(t.ID)
		if err != nil {
			return nil, err
		}
		missing := UmControlMissing(t, sum)
		out = append(out, UmTargetView{Target: t, Missing: missing, IsUndermined: IsUmUndermined(t, missing)})
	}
	return out, nil
}
