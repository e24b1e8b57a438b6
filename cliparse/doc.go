// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Values come from, in order of precedence: CLI flags, the process
environment, then a .env file (see -env).

# CLI Flags

	-p                Server port (default 3318)
	-d                Database URL or SQLite path
	-t                Database type: sqlite (default) or postgres
	-storage          Upload directory (default "uploads")
	-base-url         Public base URL for share links
	-seed             YAML seed file loaded at startup
	-env              .env file (default ".env", missing is fine)
	-print-admin-key  Print the admin key and exit
	-admin-salt       Admin key salt
	-slug-salt        Map share slug salt
	-visitor-salt     Visitor hashing salt

# Environment Variables

	PORT, DATABASE_URL, DATABASE_TYPE, STORAGE_DIR, PUBLIC_BASE_URL,
	SEED_FILE, ADMIN_KEY_SALT, MAP_SLUG_SALT, VISITOR_SALT

# Validation

ParseFlags returns an error if DATABASE_URL, ADMIN_KEY_SALT or
MAP_SLUG_SALT is missing, or if the database type is unknown.
VISITOR_SALT falls back to MAP_SLUG_SALT.
*/
package cliparse
