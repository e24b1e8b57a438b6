// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database, creates the schema and loads seed data.

# Drivers

	conn, err := db.Open("postgres", "postgres://...")
	conn, err := db.Open("sqlite", "lucianvotes.db")

SQLite connections have foreign keys enabled and are limited to one open
connection.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same DDL runs on both drivers.

# Tables

  - party, constituency, candidate: reference data
  - election, election_result, electorate: official results
  - user_map: saved prediction maps
  - news_post, ad: site content
  - page_visit, mailing_list: audience

# Relationships

	constituency 1──* candidate
	party 1──* candidate (SET NULL on delete)
	election 1──* election_result
	election 1──* electorate

# Seeding

SeedFile upserts parties and constituencies from YAML. Re-running it
updates names but keeps each constituency's political_leaning.

# Errors

IsUniqueViolation and IsForeignKeyViolation classify constraint errors
from either driver so handlers can map them to 409 and 400.
*/
package db
