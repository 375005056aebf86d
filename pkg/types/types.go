// Package types defines cogbot's domain entities: the value objects shared
// by the storage, scanner, selector, dispatcher, and feed packages.
//
// Entities that the original design modeled with inheritance (FortTarget /
// FortPrep, UmTarget / UmExpand / UmOppose) collapse here to one struct per
// sheet with a tagged Kind field; kind-specific behavior lives as methods in
// pkg/selector rather than as subclass overrides.
package types

import "time"

// ChatUser is a stable chat-platform identity, independent of any campaign
// sheet. Created on first command, never destroyed by normal flows.
type ChatUser struct {
	ID            string // platform-stable numeric id, stored as string
	PreferredName string // unique across ChatUsers
	BattleCry     string
	CreatedAt     time.Time
}

// FortContributor is a row in the fortification sheet. Owned by the fort
// scanner: a full scan drops and replaces every FortContributor.
type FortContributor struct {
	ID        int64
	Name      string // must equal some ChatUser.PreferredName
	Row       int    // 1-based, unique per document
	BattleCry string
}

// UmSheetKind distinguishes the two undermining worksheets.
type UmSheetKind string

const (
	UmSheetMain  UmSheetKind = "main"
	UmSheetSnipe UmSheetKind = "snipe"
)

// UmContributor is a row in one of the undermining sheets.
type UmContributor struct {
	ID        int64
	SheetKind UmSheetKind
	Name      string
	Row       int // unique per (SheetKind, Row)
	BattleCry string
}

// FortTargetKind distinguishes ordinary fortification systems from prep
// systems, which never count toward the fortified/undermined tally.
type FortTargetKind string

const (
	FortTargetFort FortTargetKind = "fort"
	FortTargetPrep FortTargetKind = "prep"
)

// FortTarget is one system (or prep system) tracked on the fortification
// sheet.
type FortTarget struct {
	ID            int64
	Name          string // unique
	Kind          FortTargetKind
	FortStatus    int // raw sheet value before contribution accumulation
	Trigger       int // >= 1
	FortOverride  float64 // in [0,1]
	UmStatus      int
	Undermine     float64 // in [0,1]
	DistanceLy    float64
	Notes         string
	SheetColumn   string // A1-style, unique
	SheetOrder    int
	ManualOrder   *int // stored as given; the selector reads manual order from FortOrderOverride rows
}

// UmTargetSubkind classifies an undermining target's resolution rule.
type UmTargetSubkind string

const (
	UmSubkindControl   UmTargetSubkind = "control"
	UmSubkindExpansion UmTargetSubkind = "expansion"
	UmSubkindOppose    UmTargetSubkind = "oppose"
)

// UmTarget is one system tracked on an undermining sheet.
type UmTarget struct {
	ID               int64
	SheetKind        UmSheetKind
	Name             string
	Subkind          UmTargetSubkind
	SheetColumn      string // unique within SheetKind
	Goal             int
	Security         string
	Notes            string
	CloseControl     string
	Priority         string
	ProgressUs       int
	ProgressThem     float64
	MapOffset        int
	ExpansionTrigger int
}

// FortContribution is one contributor's accumulated drop against one
// fortification target. Unique per (ContributorID, TargetID).
type FortContribution struct {
	ID            int64
	ContributorID int64
	TargetID      int64
	Amount        int // clamped to >= 0 after accumulation
}

// UmContribution is one contributor's held/redeemed merits against one
// undermining target. Unique per (SheetKind, ContributorID, TargetID).
type UmContribution struct {
	ID            int64
	SheetKind     UmSheetKind
	ContributorID int64
	TargetID      int64
	Held          int // >= 0
	Redeemed      int // >= 0
}

// FortOrderOverride pins a target to a manual ordinal position, overriding
// the default sheet-order selection in pkg/selector.
type FortOrderOverride struct {
	Ordinal    int // unique
	TargetName string // unique, references FortTarget by name
}

// AdminPermission marks a ChatUser as an administrator. CreatedAt decides
// removal seniority: only an earlier-created admin may remove another.
type AdminPermission struct {
	UserID    string
	CreatedAt time.Time
}

// ChannelPermission restricts a command to a set of channels within a
// guild. The (Command, GuildID, ChannelID) triple is the whole key.
type ChannelPermission struct {
	Command   string
	GuildID   string
	ChannelID string
}

// RolePermission restricts a command to invokers holding a role within a
// guild. The (Command, GuildID, RoleID) triple is the whole key.
type RolePermission struct {
	Command string
	GuildID string
	RoleID  string
}

// KosEntry is one entry on the kill-on-sight / friendly-whitelist roster.
type KosEntry struct {
	ID       int64
	CmdrName string // unique
	Squad    string
	Reason   string
	Friendly bool
}

// TrackedSystem is a system leadership has asked the carrier ingester to
// watch, out to DistanceLy from it.
type TrackedSystem struct {
	SystemName string
	DistanceLy int
}

// TrackedSystemCached is the precomputed union of every TrackedSystem's
// covered-systems set, keyed by the covered system's name. Overlaps is
// stored as the separator-joined set of centres that cover it; an entry
// whose Overlaps becomes empty is deleted, not stored empty.
type TrackedSystemCached struct {
	SystemName string
	Overlaps   []string // centre names covering SystemName
}

// TrackedCarrier is a fleet carrier last observed in a watched system. A
// row with Override == false and LastUpdated older than the reap window
// (pkg/feed) is deleted by the periodic summary task.
type TrackedCarrier struct {
	ID             string // 7-character carrier id
	Squad          string
	CurrentSystem  string
	PreviousSystem string
	Override       bool
	LastUpdated    time.Time
}

// SpySystem is a snapshot of a control system's state from the external
// power-play feed. Overwritten in place when a newer snapshot arrives.
type SpySystem struct {
	SystemName       string
	ControllingPower string
	UpdatedAt        time.Time
}

// SpyVote is a snapshot of per-power vote percentages for a system.
type SpyVote struct {
	SystemName string
	Power      string
	Percent    float64
	UpdatedAt  time.Time
}

// SpyPrep is a snapshot of preparation merits accumulated for a system.
type SpyPrep struct {
	SystemName string
	Power      string
	Merits     int
	UpdatedAt  time.Time
}

// SpyTraffic is a snapshot of traffic counts observed at a system.
type SpyTraffic struct {
	SystemName string
	Traffic    int
	UpdatedAt  time.Time
}

// SpyBounty is one row of a system's top-bounty table snapshot.
type SpyBounty struct {
	SystemName string
	CmdrName   string
	Bounty     int64
	UpdatedAt  time.Time
}

// Global is the singleton per-cycle record: cycle number, consolidation
// percentage, and a monotonically increasing UpdatedAt. A write carrying an
// older UpdatedAt must be rejected by the storage layer.
type Global struct {
	Cycle           int
	Consolidation   float64
	UpdatedAt       time.Time
}

// Achievement is a one-time recognition awarded to a ChatUser — e.g.
// "first drop", "fort completionist". Awarding is idempotent: the same
// (UserID, Key) pair is never recorded twice.
type Achievement struct {
	ID        int64
	UserID    string
	Key       string
	AwardedAt time.Time
}

const (
	AchievementFirstDrop         = "first_drop"
	AchievementFirstHold         = "first_hold"
	AchievementFortCompletionist = "fort_completionist"
)
