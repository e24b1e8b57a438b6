// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SeedData is the reference data loaded at startup
type SeedData struct {
	Parties []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Color   string `yaml:"color"`
		Leader  string `yaml:"leader"`
		LogoURL string `yaml:"logo_url"`
	} `yaml:"parties"`
	Constituencies []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		District string `yaml:"district"`
	} `yaml:"constituencies"`
}

// SeedFile loads a YAML seed file. See Seed.
func SeedFile(db *sql.DB, path string) (parties, constituencies int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return Seed(db, f)
}

// Seed upserts parties and constituencies. Names and colours are
// refreshed; a constituency's political_leaning is left untouched.
func Seed(db *sql.DB, r io.Reader) (parties, constituencies int, err error) {
	var data SeedData
	if err := yaml.NewDecoder(r).Decode(&data); err != nil {
		return 0, 0, fmt.Errorf("failed to parse seed data: %w", err)
	}

	for _, p := range data.Parties {
		if p.ID == "" || p.Name == "" {
			return 0, 0, fmt.Errorf("seed party needs id and name: %+v", p)
		}
	}
	for _, c := range data.Constituencies {
		if c.ID == "" || c.Name == "" {
			return 0, 0, fmt.Errorf("seed constituency needs id and name: %+v", c)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, p := range data.Parties {
		_, err := tx.Exec(`
			INSERT INTO party (id, name, color, leader, logo_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				color = excluded.color,
				leader = excluded.leader,
				logo_url = excluded.logo_url
		`, p.ID, p.Name, p.Color, p.Leader, p.LogoURL, now)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to seed party %s: %w", p.ID, err)
		}
	}

	for _, c := range data.Constituencies {
		_, err := tx.Exec(`
			INSERT INTO constituency (id, name, district, political_leaning, created_at)
			VALUES ($1, $2, $3, 'unselected', $4)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				district = excluded.district
		`, c.ID, c.Name, c.District, now)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to seed constituency %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit seed data: %w", err)
	}

	return len(data.Parties), len(data.Constituencies), nil
}
