// Package postgres registers the PostgreSQL engine with the datasource registry.
// Build with the no_postgres tag to leave the pgx driver out of the binary.
package postgres
