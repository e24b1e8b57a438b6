// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and token generation utilities.

# Admin Keys

The CMS has a single admin identity. Its key is an HMAC-SHA256 of
AdminSubject under the admin salt:

	adminKey := auth.GenerateAdminKey(auth.AdminSubject, salt)
	err := auth.ValidateAdminKey(auth.AdminSubject, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
nothing needs to be stored; rotate it by changing the salt. Print the current
key with the -print-admin-key flag.

# Visitor Tokens

Visitor tokens are random secrets set in the lv_visitor cookie:

	token, err := auth.GenerateVisitorToken()

They are never stored directly, only their salted hash.

# Share Slugs

Saved prediction maps get a short base62 slug derived from the map ID:

	slug := auth.GenerateShareSlug(mapID, salt)

# IP Hashing

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
