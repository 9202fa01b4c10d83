// Package postgres implements the internal/store interfaces on PostgreSQL
// through database/sql and the pgx driver. The schema is managed by the
// goose migrations embedded in the migrations subpackage.
package postgres
