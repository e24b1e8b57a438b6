// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package prediction encodes "Make Your Own Map" predictions into shareable
URL values and back.

# Leanings

Each constituency holds one of five leanings, each with a one-character code:

	slp        s
	uwp        u
	ind        i
	tossup     t
	unselected x

Unknown values encode as 'x' and unknown codes decode as unselected.

# Wire Format

A map is the code characters of every constituency, concatenated in
canonical order (constituency IDs sorted as strings), then wrapped in
standard base64:

	c1=slp c2=uwp c3=unselected  →  "sux"  →  "c3V4"

There are no keys or delimiters, so the encoder and decoder must see the
same constituency set. Adding or removing a constituency invalidates old
links.

# Decoding

Decode never fails hard. Malformed base64 or a length that does not match
the current constituency count yields an all-unselected map together with
ErrMalformedEncoding or ErrLengthMismatch so the caller can log it:

	assignments, err := prediction.Decode(r.URL.Query().Get("map"), ids)
	if err != nil {
		slog.Warn("shared map not restored", "error", err)
	}
*/
package prediction
