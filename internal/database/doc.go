// Package database keeps the artifact manifest: a SQLite table with one row
// per cached artifact, recording which source and strategy produced it, its
// size, and how many times it has been regenerated.
//
// The manifest is optional bookkeeping. The cache itself never depends on
// it, and nothing here deletes artifacts; housekeeping tools read [Stats]
// and decide for themselves.
//
// The database uses WAL mode so CLI batch workers can record concurrently
// while a stats query runs.
package database
