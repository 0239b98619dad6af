// Package migrations embeds the SQL schema migrations for the sqlite stores.
package migrations

import "embed"

// EventsFS holds migrations for the event journal database.
//
//go:embed events/*.sql
var EventsFS embed.FS

// ProjectionsFS holds migrations for the projections database.
//
//go:embed projections/*.sql
var ProjectionsFS embed.FS
