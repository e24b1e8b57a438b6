// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"sort"

	"github.com/lucianvotes/server/prediction"
)

// PartySwing is the change in a party's share, in percentage points
type PartySwing struct {
	PartyID       string  `json:"party_id"`
	CurrentShare  float64 `json:"current_share"`
	PreviousShare float64 `json:"previous_share"`
	Swing         float64 `json:"swing"`
}

type ConstituencySwing struct {
	ConstituencyID string       `json:"constituency_id"`
	CurrentWinner  string       `json:"current_winner,omitempty"`
	PreviousWinner string       `json:"previous_winner,omitempty"`
	Flipped        bool         `json:"flipped"`
	Parties        []PartySwing `json:"parties"`
}

type SwingReport struct {
	National       []PartySwing        `json:"national"`
	Constituencies []ConstituencySwing `json:"constituencies"`
	Unmatched      []string            `json:"unmatched"`
}

// Swing compares two election summaries. Constituencies present in only
// one of them are listed in Unmatched.
func Swing(current, previous Summary) SwingReport {
	report := SwingReport{
		Constituencies: []ConstituencySwing{},
		Unmatched:      []string{},
	}

	currentNational := make(map[string]float64)
	for _, p := range current.Parties {
		currentNational[p.PartyID] = p.Share
	}
	previousNational := make(map[string]float64)
	for _, p := range previous.Parties {
		previousNational[p.PartyID] = p.Share
	}
	report.National = partySwings(currentNational, previousNational)

	previousByID := make(map[string]ConstituencyResult, len(previous.Constituencies))
	for _, c := range previous.Constituencies {
		previousByID[c.ConstituencyID] = c
	}

	seen := make(map[string]bool)
	for _, cur := range current.Constituencies {
		seen[cur.ConstituencyID] = true
		prev, ok := previousByID[cur.ConstituencyID]
		if !ok {
			report.Unmatched = append(report.Unmatched, cur.ConstituencyID)
			continue
		}

		report.Constituencies = append(report.Constituencies, ConstituencySwing{
			ConstituencyID: cur.ConstituencyID,
			CurrentWinner:  cur.WinnerParty,
			PreviousWinner: prev.WinnerParty,
			Flipped:        cur.WinnerParty != "" && prev.WinnerParty != "" && cur.WinnerParty != prev.WinnerParty,
			Parties:        partySwings(partyShares(cur), partyShares(prev)),
		})
	}
	for _, prev := range previous.Constituencies {
		if !seen[prev.ConstituencyID] {
			report.Unmatched = append(report.Unmatched, prev.ConstituencyID)
		}
	}
	sort.Strings(report.Unmatched)

	return report
}

// partyShares sums candidate shares per party within one constituency
func partyShares(c ConstituencyResult) map[string]float64 {
	shares := make(map[string]float64)
	for _, cand := range c.Candidates {
		shares[cand.PartyID] += cand.Share
	}
	return shares
}

func partySwings(current, previous map[string]float64) []PartySwing {
	parties := make(map[string]bool)
	for id := range current {
		parties[id] = true
	}
	for id := range previous {
		parties[id] = true
	}

	swings := make([]PartySwing, 0, len(parties))
	for id := range parties {
		swings = append(swings, PartySwing{
			PartyID:       id,
			CurrentShare:  current[id],
			PreviousShare: previous[id],
			Swing:         current[id] - previous[id],
		})
	}
	sort.Slice(swings, func(i, j int) bool {
		return swings[i].PartyID < swings[j].PartyID
	})
	return swings
}

// ConsensusRow is the public's combined prediction for one constituency
type ConsensusRow struct {
	ConstituencyID string                     `json:"constituency_id"`
	Counts         map[prediction.Leaning]int `json:"counts"`
	Leaning        prediction.Leaning         `json:"political_leaning"`
}

// Consensus counts leanings per constituency across saved maps, with one
// row per id in canonical order. The consensus leaning is the most common
// selected leaning; ties between leanings become tossup, and constituencies
// nobody picked stay unselected. Assignments for other ids are ignored.
func Consensus(ids []string, maps [][]prediction.Assignment) []ConsensusRow {
	ordered := prediction.CanonicalOrder(ids)
	counts := make(map[string]map[prediction.Leaning]int, len(ordered))
	for _, id := range ordered {
		c := make(map[prediction.Leaning]int, len(prediction.Leanings))
		for _, l := range prediction.Leanings {
			c[l] = 0
		}
		counts[id] = c
	}

	for _, m := range maps {
		for _, a := range m {
			if c, ok := counts[a.ConstituencyID]; ok {
				c[prediction.ParseLeaning(string(a.Leaning))]++
			}
		}
	}

	rows := make([]ConsensusRow, 0, len(ordered))
	for _, id := range ordered {
		rows = append(rows, ConsensusRow{
			ConstituencyID: id,
			Counts:         counts[id],
			Leaning:        consensusLeaning(counts[id]),
		})
	}
	return rows
}

func consensusLeaning(counts map[prediction.Leaning]int) prediction.Leaning {
	best := prediction.Unselected
	bestCount := 0
	tied := false
	for _, l := range prediction.Leanings {
		if l == prediction.Unselected {
			continue
		}
		switch n := counts[l]; {
		case n > bestCount:
			best, bestCount, tied = l, n, false
		case n == bestCount && n > 0:
			tied = true
		}
	}
	if tied {
		return prediction.Tossup
	}
	return best
}
