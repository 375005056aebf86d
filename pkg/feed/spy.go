package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/types"
)

// spySnapshotSchemaSuffix identifies a periodic power-play snapshot
// rather than a per-event journal message. It rides the same Source/
// Message plumbing as fleet carrier sightings (spec.md §3's Spy*
// entities are an "external feed", not necessarily EDDN itself, but
// nothing about Source/Message is EDDN-specific), grounded on
// original_source/cogdb/schema/vote.py and consolidation.py's
// per-system/per-power snapshot shape.
const spySnapshotSchemaSuffix = "spy_squirrel/1"

// spySnapshotBody is one full scrape: every table is replaced wholesale
// per entry using the "overwrite if newer" contract pkg/storage's
// PutSpy*/ReplaceSpyBounties already implement, mirroring how the
// original scraper always ships a complete table rather than a diff.
type spySnapshotBody struct {
	Systems  []spySystemEntry  `json:"systems"`
	Votes    []spyVoteEntry    `json:"votes"`
	Preps    []spyPrepEntry    `json:"preps"`
	Traffic  []spyTrafficEntry `json:"traffic"`
	Bounties []spyBountyEntry  `json:"bounties"`
}

type spySystemEntry struct {
	SystemName       string    `json:"systemName"`
	ControllingPower string    `json:"controllingPower"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type spyVoteEntry struct {
	SystemName string    `json:"systemName"`
	Power      string    `json:"power"`
	Percent    float64   `json:"percent"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type spyPrepEntry struct {
	SystemName string    `json:"systemName"`
	Power      string    `json:"power"`
	Merits     int       `json:"merits"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type spyTrafficEntry struct {
	SystemName string    `json:"systemName"`
	Traffic    int       `json:"traffic"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type spyBountyEntry struct {
	SystemName string    `json:"systemName"`
	CmdrName   string    `json:"cmdrName"`
	Bounty     int64     `json:"bounty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// handleSpySnapshot decodes and upserts one power-play scrape into the
// reference database. Each table is independent, so one malformed entry
// is logged and skipped rather than discarding the whole snapshot.
func (in *Ingester) handleSpySnapshot(msg Message) {
	var body spySnapshotBody
	if err := json.Unmarshal(msg.Raw, &body); err != nil {
		in.logger.Warn().Err(err).Msg("spy snapshot decode failed")
		return
	}
	ctx := context.Background()

	for _, e := range body.Systems {
		if err := in.Store.PutSpySystem(ctx, &types.SpySystem{
			SystemName: e.SystemName, ControllingPower: e.ControllingPower, UpdatedAt: e.UpdatedAt,
		}); err != nil {
			in.logger.Error().Err(err).Str("system", e.SystemName).Msg("spy system upsert failed")
		}
	}
	for _, e := range body.Votes {
		if err := in.Store.PutSpyVote(ctx, &types.SpyVote{
			SystemName: e.SystemName, Power: e.Power, Percent: e.Percent, UpdatedAt: e.UpdatedAt,
		}); err != nil {
			in.logger.Error().Err(err).Str("system", e.SystemName).Msg("spy vote upsert failed")
		}
	}
	for _, e := range body.Preps {
		if err := in.Store.PutSpyPrep(ctx, &types.SpyPrep{
			SystemName: e.SystemName, Power: e.Power, Merits: e.Merits, UpdatedAt: e.UpdatedAt,
		}); err != nil {
			in.logger.Error().Err(err).Str("system", e.SystemName).Msg("spy prep upsert failed")
		}
	}
	for _, e := range body.Traffic {
		if err := in.Store.PutSpyTraffic(ctx, &types.SpyTraffic{
			SystemName: e.SystemName, Traffic: e.Traffic, UpdatedAt: e.UpdatedAt,
		}); err != nil {
			in.logger.Error().Err(err).Str("system", e.SystemName).Msg("spy traffic upsert failed")
		}
	}

	bySystem := make(map[string][]*types.SpyBounty)
	for _, e := range body.Bounties {
		bySystem[e.SystemName] = append(bySystem[e.SystemName], &types.SpyBounty{
			SystemName: e.SystemName, CmdrName: e.CmdrName, Bounty: e.Bounty, UpdatedAt: e.UpdatedAt,
		})
	}
	for system, bounties := range bySystem {
		if err := in.Store.ReplaceSpyBounties(ctx, system, bounties); err != nil {
			in.logger.Error().Err(err).Str("system", system).Msg("spy bounty replace failed")
		}
	}
}
