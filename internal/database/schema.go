package database

import _ "embed"

// Schema is the registry schema produced by applying every migration. Tests
// use it to build a database without running the migrator.
//
//go:embed sqlc/schema.sql
var Schema string
