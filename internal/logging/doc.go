// Package logging provides the leveled logger used across imagelite.
//
// Levels, in increasing severity:
//   - DEBUG: resolver decisions, cache lookups, codec phases
//   - INFO: configuration and artifact generation
//   - WARN: recoverable conditions (budget exceeded, chmod fallback)
//   - ERROR: failed transforms
//   - FATAL: unrecoverable startup errors
//
// The level comes from DEBUG or LOG_LEVEL and may be overridden at runtime
// with [SetLevel] (the CLI does this for --log-level). Output goes to
// standard error so that command output on standard out stays clean.
package logging
