// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"sort"
)

// Independent is the party bucket for candidates without a party
const Independent = "ind"

// ResultRow is one candidate's vote count in one constituency
type ResultRow struct {
	ConstituencyID string `json:"constituency_id"`
	CandidateName  string `json:"candidate_name"`
	PartyID        string `json:"party_id"`
	Votes          int    `json:"votes"`
}

// CandidateResult is a candidate line within a constituency
type CandidateResult struct {
	CandidateName string  `json:"candidate_name"`
	PartyID       string  `json:"party_id"`
	Votes         int     `json:"votes"`
	Share         float64 `json:"share"` // percent of constituency votes
}

type ConstituencyResult struct {
	ConstituencyID   string            `json:"constituency_id"`
	TotalVotes       int               `json:"total_votes"`
	RegisteredVoters int               `json:"registered_voters,omitempty"`
	Turnout          float64           `json:"turnout,omitempty"` // percent
	WinnerParty      string            `json:"winner_party,omitempty"`
	WinnerCandidate  string            `json:"winner_candidate,omitempty"`
	Margin           int               `json:"margin"`
	MarginPct        float64           `json:"margin_pct"`
	Candidates       []CandidateResult `json:"candidates"`
}

type PartyTotal struct {
	PartyID string  `json:"party_id"`
	Votes   int     `json:"votes"`
	Share   float64 `json:"share"` // percent of national votes
	Seats   int     `json:"seats"`
}

// Summary is the aggregate view of one election
type Summary struct {
	TotalVotes     int                  `json:"total_votes"`
	Turnout        float64              `json:"turnout,omitempty"`
	Constituencies []ConstituencyResult `json:"constituencies"`
	Parties        []PartyTotal         `json:"parties"`
}

// Summarize aggregates raw result rows. electorate maps constituency ID to
// registered voters and may be nil.
func Summarize(rows []ResultRow, electorate map[string]int) Summary {
	byConstituency := make(map[string][]ResultRow)
	for _, row := range rows {
		if row.PartyID == "" {
			row.PartyID = Independent
		}
		byConstituency[row.ConstituencyID] = append(byConstituency[row.ConstituencyID], row)
	}

	partyVotes := make(map[string]int)
	partySeats := make(map[string]int)
	var summary Summary
	registeredTotal := 0
	votesWithElectorate := 0

	for constituencyID, candidates := range byConstituency {
		result := summarizeConstituency(constituencyID, candidates)

		if registered := electorate[constituencyID]; registered > 0 {
			result.RegisteredVoters = registered
			result.Turnout = percent(result.TotalVotes, registered)
			registeredTotal += registered
			votesWithElectorate += result.TotalVotes
		}

		for _, c := range result.Candidates {
			partyVotes[c.PartyID] += c.Votes
		}
		if result.WinnerParty != "" {
			partySeats[result.WinnerParty]++
		}

		summary.TotalVotes += result.TotalVotes
		summary.Constituencies = append(summary.Constituencies, result)
	}

	if registeredTotal > 0 {
		summary.Turnout = percent(votesWithElectorate, registeredTotal)
	}

	sort.Slice(summary.Constituencies, func(i, j int) bool {
		return summary.Constituencies[i].ConstituencyID < summary.Constituencies[j].ConstituencyID
	})

	for partyID, votes := range partyVotes {
		summary.Parties = append(summary.Parties, PartyTotal{
			PartyID: partyID,
			Votes:   votes,
			Share:   percent(votes, summary.TotalVotes),
			Seats:   partySeats[partyID],
		})
	}

	// Seats first, then votes, then party ID for stability
	sort.Slice(summary.Parties, func(i, j int) bool {
		a, b := summary.Parties[i], summary.Parties[j]
		if a.Seats != b.Seats {
			return a.Seats > b.Seats
		}
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		return a.PartyID < b.PartyID
	})

	if summary.Constituencies == nil {
		summary.Constituencies = []ConstituencyResult{}
	}
	if summary.Parties == nil {
		summary.Parties = []PartyTotal{}
	}

	return summary
}

func summarizeConstituency(constituencyID string, rows []ResultRow) ConstituencyResult {
	result := ConstituencyResult{ConstituencyID: constituencyID}

	for _, row := range rows {
		result.TotalVotes += row.Votes
	}

	for _, row := range rows {
		result.Candidates = append(result.Candidates, CandidateResult{
			CandidateName: row.CandidateName,
			PartyID:       row.PartyID,
			Votes:         row.Votes,
			Share:         percent(row.Votes, result.TotalVotes),
		})
	}

	sort.Slice(result.Candidates, func(i, j int) bool {
		a, b := result.Candidates[i], result.Candidates[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		return a.CandidateName < b.CandidateName
	})

	if result.TotalVotes == 0 || len(result.Candidates) == 0 {
		return result
	}

	winner := result.Candidates[0]
	result.WinnerParty = winner.PartyID
	result.WinnerCandidate = winner.CandidateName
	if len(result.Candidates) > 1 {
		result.Margin = winner.Votes - result.Candidates[1].Votes
	} else {
		result.Margin = winner.Votes
	}
	result.MarginPct = percent(result.Margin, result.TotalVotes)

	return result
}

// percent returns part/whole as a percentage, 0 when whole is 0
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0.0
	}
	return 100.0 * float64(part) / float64(whole)
}
