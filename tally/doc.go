// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally aggregates election results and saved predictions.

Summarize turns raw (constituency, candidate, party, votes) rows into
per-constituency winners, margins and turnout plus national party totals
and seat counts:

	summary := tally.Summarize(rows, electorate)

Swing compares two summaries in percentage points, per constituency and
nationally. Consensus combines saved prediction maps into the most common
leaning per constituency.

All shares are percentages (0-100). Functions here do no I/O.
*/
package tally
