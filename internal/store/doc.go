// Package store keeps the history of analysis runs in a SQLite database.
//
// Each run is stored with its summary counts, its flagged enrollment records
// and its flagged integrity rows. Schema changes are applied on Open and
// tracked with PRAGMA user_version.
package store
