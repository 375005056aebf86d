package selector

import (
	"sort"

	"github.com/cogbot/cogbot/pkg/storage"
)

// MeritsEntry is one contributor's ranked merit total.
type MeritsEntry struct {
	ChatUserID string
	Name       string
	Merits     int
}

// sortRanked orders entries by merits descending, then name ascending —
// spec.md §4.3's tie-break rule, applied identically to all three
// aggregates below so ties always produce a stable, reproducible output.
func sortRanked(entries []MeritsEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Merits != entries[j].Merits {
			return entries[i].Merits > entries[j].Merits
		}
		return entries[i].Name < entries[j].Name
	})
}

// FortMerits ranks every FortContributor by their summed fort
// contributions. This is spec.md §9's Open Question #1, resolved as one
// of three distinct aggregates (fort-only), rather than reusing the same
// "all merits" computation for every leaderboard.
func FortMerits(sess *storage.Session) ([]MeritsEntry, error) {
	contributors, err := sess.ListFortContributors()
	if err != nil {
		return nil, err
	}
	targets, err := sess.ListFortTargets()
	if err != nil {
		return nil, err
	}

	totals := make(map[int64]int, len(contributors))
	for _, target := range targets {
		contribs, err := sess.ListFortContributionsByTarget(target.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range contribs {
			totals[c.ContributorID] += c.Amount
		}
	}

	entries := make([]MeritsEntry, 0, len(contributors))
	for _, c := range contributors {
		entries = append(entries, MeritsEntry{Name: c.Name, Merits: totals[c.ID]})
	}
	sortRanked(entries)
	return entries, nil
}

// TotalMerits combines FortMerits and both undermining sheets' UmMerits
// into one "all merits" leaderboard — the third of the three distinct
// aggregates spec.md §9's Open Question #1 calls for.
func TotalMerits(sess *storage.Session) ([]MeritsEntry, error) {
	fort, err := FortMerits(sess)
	if err != nil {
		return nil, err
	}
	main, err := UmMeritsBySheet(sess, "main")
	if err != nil {
		return nil, err
	}
	snipe, err := UmMeritsBySheet(sess, "snipe")
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	order := make([]string, 0)
	add := func(entries []MeritsEntry) {
		for _, e := range entries {
			if _, seen := totals[e.Name]; !seen {
				order = append(order, e.Name)
			}
			totals[e.Name] += e.Merits
		}
	}
	add(fort)
	add(main)
	add(snipe)

	out := make([]MeritsEntry, 0, len(order))
	for _, name := range order {
		out = append(out, MeritsEntry{Name: name, Merits: totals[name]})
	}
	sortRanked(out)
	return out, nil
}
