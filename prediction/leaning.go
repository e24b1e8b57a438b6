// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package prediction

// Leaning is the predicted outcome for a single constituency.
type Leaning string

const (
	SLP        Leaning = "slp"
	UWP        Leaning = "uwp"
	IND        Leaning = "ind"
	Tossup     Leaning = "tossup"
	Unselected Leaning = "unselected"
)

// Leanings lists every vocabulary value in display order
var Leanings = []Leaning{SLP, UWP, IND, Tossup, Unselected}

var leaningCodes = map[Leaning]byte{
	SLP:        's',
	UWP:        'u',
	IND:        'i',
	Tossup:     't',
	Unselected: 'x',
}

var codeLeanings = map[byte]Leaning{
	's': SLP,
	'u': UWP,
	'i': IND,
	't': Tossup,
	'x': Unselected,
}

// Code returns the single-character code for l.
// Values outside the vocabulary encode as 'x'.
func (l Leaning) Code() byte {
	if c, ok := leaningCodes[l]; ok {
		return c
	}
	return 'x'
}

// Valid reports whether l is one of the five vocabulary values
func (l Leaning) Valid() bool {
	_, ok := leaningCodes[l]
	return ok
}

// LeaningFromCode maps a code character back to its leaning.
// Unknown characters decode as Unselected.
func LeaningFromCode(c byte) Leaning {
	if l, ok := codeLeanings[c]; ok {
		return l
	}
	return Unselected
}

// ParseLeaning converts a stored or submitted value into a Leaning,
// falling back to Unselected for empty or unknown input.
func ParseLeaning(s string) Leaning {
	l := Leaning(s)
	if l.Valid() {
		return l
	}
	return Unselected
}
