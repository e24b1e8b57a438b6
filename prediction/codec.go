// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package prediction

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMalformedEncoding = errors.New("malformed map encoding")
	ErrLengthMismatch    = errors.New("map length does not match constituency count")
)

// Assignment is one constituency's predicted leaning
type Assignment struct {
	ConstituencyID string  `json:"constituency_id"`
	Leaning        Leaning `json:"political_leaning"`
}

// CanonicalOrder returns a sorted, de-duplicated copy of ids.
// Character positions in an encoded map refer to this order.
func CanonicalOrder(ids []string) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	out := sorted[:0]
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// EncodeRaw returns the un-wrapped code string, one character per
// constituency in canonical order. A repeated ConstituencyID keeps its
// last leaning.
func EncodeRaw(assignments []Assignment) string {
	ids := make([]string, 0, len(assignments))
	leanings := make(map[string]Leaning, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ConstituencyID)
		leanings[a.ConstituencyID] = a.Leaning
	}

	ordered := CanonicalOrder(ids)
	var b strings.Builder
	b.Grow(len(ordered))
	for _, id := range ordered {
		b.WriteByte(leanings[id].Code())
	}
	return b.String()
}

// Encode returns the URL transport form of assignments (standard base64
// of the raw code string).
func Encode(assignments []Assignment) string {
	return base64.StdEncoding.EncodeToString([]byte(EncodeRaw(assignments)))
}

// EncodeFor encodes a prediction over the full constituency list.
// Constituencies missing from leanings are encoded as Unselected.
func EncodeFor(ids []string, leanings map[string]Leaning) string {
	return Encode(Fill(ids, leanings))
}

// Fill builds a full-length assignment list in canonical order
func Fill(ids []string, leanings map[string]Leaning) []Assignment {
	ordered := CanonicalOrder(ids)
	out := make([]Assignment, len(ordered))
	for i, id := range ordered {
		l, ok := leanings[id]
		if !ok {
			l = Unselected
		}
		out[i] = Assignment{ConstituencyID: id, Leaning: ParseLeaning(string(l))}
	}
	return out
}

// Blank returns every constituency in canonical order marked Unselected
func Blank(ids []string) []Assignment {
	return Fill(ids, nil)
}

// Decode reverses Encode against the current constituency list.
//
// The returned assignments are always complete and usable. When the input
// cannot be restored the result is Blank(ids) and err says why
// (ErrMalformedEncoding or ErrLengthMismatch).
func Decode(encoded string, ids []string) ([]Assignment, error) {
	raw, err := decodeTransport(encoded)
	if err != nil {
		return Blank(ids), err
	}
	return DecodeRaw(raw, ids)
}

// DecodeRaw assigns raw code characters to ids positionally in canonical
// order. Unknown characters become Unselected for that position only.
func DecodeRaw(raw string, ids []string) ([]Assignment, error) {
	ordered := CanonicalOrder(ids)
	if len(raw) != len(ordered) {
		return Blank(ids), fmt.Errorf("%w: got %d codes for %d constituencies",
			ErrLengthMismatch, len(raw), len(ordered))
	}

	out := make([]Assignment, len(ordered))
	for i, id := range ordered {
		out[i] = Assignment{ConstituencyID: id, Leaning: LeaningFromCode(raw[i])}
	}
	return out, nil
}

// decodeTransport undoes the base64 wrapping. Links pasted through chat
// apps or unescaped query strings often arrive with '+' turned into
// spaces or padding stripped, so both are accepted. Other alphabets are
// rejected.
func decodeTransport(encoded string) (string, error) {
	s := strings.ReplaceAll(strings.Trim(encoded, "\t\r\n"), " ", "+")

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return string(b), nil
		}
	}
	return "", ErrMalformedEncoding
}

// Seats counts constituencies per leaning. Every vocabulary value is
// present in the result.
func Seats(assignments []Assignment) map[Leaning]int {
	seats := make(map[Leaning]int, len(Leanings))
	for _, l := range Leanings {
		seats[l] = 0
	}
	for _, a := range assignments {
		seats[ParseLeaning(string(a.Leaning))]++
	}
	return seats
}
