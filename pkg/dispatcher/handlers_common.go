package dispatcher

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// ensureChatUser returns user's ChatUser row, creating it on first sight
// (spec.md §3: "created on first command, never destroyed").
func ensureChatUser(sess *storage.Session, user chatmodel.User) (*types.ChatUser, error) {
	u, err := sess.GetChatUser(user.ID())
	if err == nil {
		return u, nil
	}
	if !isNoMatch(err) {
		return nil, err
	}
	nu := &types.ChatUser{ID: user.ID(), PreferredName: user.DisplayName()}
	if err := sess.CreateChatUser(nu); err != nil {
		return nil, err
	}
	return nu, nil
}

func isNoMatch(err error) bool {
	var ve *storage.ValidationError
	return errors.As(err, &ve) && ve.Kind == "no_match"
}

func isAmbiguous(err error) bool {
	var ve *storage.ValidationError
	return errors.As(err, &ve) && ve.Kind == "more_than_one_match"
}

// normalizeMatch mirrors the case/whitespace-insensitive substring match
// the storage layer's Find*ByName queries use, so a Go-side rebuild of
// the candidate list agrees with what produced the ambiguity.
func normalizeMatch(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// ensureFortContributor finds name's fortification-sheet row by a
// case-insensitive name match, or auto-enrolls it at the next free row (spec.md §4.4's sheet
// auto-enrollment). Reports whether a new row was created so the caller
// can queue the matching sheet write.
func ensureFortContributor(sess *storage.Session, name, battleCry string) (*types.FortContributor, bool, error) {
	existing, err := sess.ListFortContributors()
	if err != nil {
		return nil, false, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return c, false, nil
		}
	}
	row, err := sess.NextFreeFortRow()
	if err != nil {
		return nil, false, err
	}
	c := &types.FortContributor{Name: name, Row: row, BattleCry: battleCry}
	if err := sess.CreateFortContributor(c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// ensureUmContributor is ensureFortContributor's undermining-sheet twin.
func ensureUmContributor(sess *storage.Session, kind types.UmSheetKind, name, battleCry string) (*types.UmContributor, bool, error) {
	existing, err := sess.ListUmContributors(kind)
	if err != nil {
		return nil, false, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return c, false, nil
		}
	}
	row, err := sess.NextFreeUmRow(kind)
	if err != nil {
		return nil, false, err
	}
	c := &types.UmContributor{SheetKind: kind, Name: name, Row: row, BattleCry: battleCry}
	if err := sess.CreateUmContributor(c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// parseSignedAmount parses a drop/hold amount and bounds it to
// [-maxAbs, maxAbs] inclusive.
func parseSignedAmount(command, raw string, maxAbs int) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &boterr.UserError{Command: command, Reason: fmt.Sprintf("%q is not a whole number", raw)}
	}
	if n < -maxAbs || n > maxAbs {
		return 0, &boterr.UserError{Command: command, Reason: fmt.Sprintf("amount must be within ±%d", maxAbs)}
	}
	return n, nil
}

// splitList splits a comma-separated flag value into its non-empty,
// trimmed members. An empty input yields an empty (not nil) slice, so
// callers can distinguish "clear the list" from "list unchanged".
func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fortContributorName resolves contribution.ContributorID against
// contributors, falling back to the numeric id if the row was deleted
// out from under the lookup.
func fortContributorName(contributors []*types.FortContributor, id int64) string {
	for _, c := range contributors {
		if c.ID == id {
			return c.Name
		}
	}
	return fmt.Sprintf("contributor#%d", id)
}

// tiedTopContributors returns every contributor name tied at the highest
// amount in contribs, sorted for a stable reply.
func tiedTopContributors(contribs []*types.FortContribution, contributors []*types.FortContributor) []string {
	max := 0
	for _, c := range contribs {
		if c.Amount > max {
			max = c.Amount
		}
	}
	if max == 0 {
		return nil
	}
	var names []string
	for _, c := range contribs {
		if c.Amount == max {
			names = append(names, fortContributorName(contributors, c.ContributorID))
		}
	}
	sort.Strings(names)
	return names
}
