// Package journal records inbound MQTT commands and their outcome in SQLite.
//
// The journal is optional. When no database path is configured the service
// uses [Disabled], whose List returns [ErrDisabled] so the status server can
// report the feature as off.
//
// # Storage
//
// Entries live in the command_journal table created by the migrations in
// package migrations. Timestamps are stored as RFC 3339 text in UTC.
package journal
