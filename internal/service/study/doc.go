// Package study orchestrates card storage, the scheduler and the session
// queue policy. It owns the asynchronous boundary of the engine: it loads
// card states before a scheduling decision, persists the results after it
// and keeps resumable session checkpoints.
package study
