// Package srs implements the continuous memory model that drives scheduling.
//
// Each review updates a card's difficulty and stability through a fixed,
// 17-weight nonlinear recurrence and derives the number of days until the
// next review. All functions are pure: they allocate a new state and never
// touch the input, and they perform no I/O.
package srs
