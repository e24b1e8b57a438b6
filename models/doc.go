// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

Prediction map payloads carry []prediction.Assignment, so a constituency's
leaning is always one of the prediction.Leaning values on the wire.
Election summaries are tally types embedded as-is.

Ad placements are banner, sidebar and map.
*/
package models
