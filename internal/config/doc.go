// Package config loads server, database, memory model and study session
// settings from a YAML file, a .env file and SCRY_-prefixed environment
// variables, and validates them before any component is built.
package config
