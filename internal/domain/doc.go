// Package domain contains the core entities of the scheduling engine: cards,
// their memory state, review events and ratings, plus the typed errors shared
// by every layer. It has no knowledge of storage, transport or configuration.
package domain
