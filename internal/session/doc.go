// Package session implements the study-session queue policy: it turns a deck
// of cards into an ordered queue bounded by daily quotas, re-inserts cards on
// each rating and tracks in-session mastery streaks and back navigation.
//
// A Session is driven by a single caller and is not safe for concurrent use.
// Storage is owned by the caller; the package works on in-memory cards only.
package session
