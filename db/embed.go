// Package db embeds the database schema and the default menu.
package db

import _ "embed"

var (
	// Schema is the idempotent DDL for every table.
	//
	//go:embed migrations/001_schema.sql
	Schema string

	// DefaultMenu is the starter menu and ingredient list used by seed-db
	// when no seed file is given.
	//
	//go:embed seed/menu.json
	DefaultMenu []byte
)
