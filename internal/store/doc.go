// Package store defines the persistence boundary of the scheduler: card
// states with their review log, session checkpoints and the per-deck record
// of learned cards. Implementations live in internal/platform/postgres.
package store
