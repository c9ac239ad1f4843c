// Package mysql registers the MySQL engine with the datasource registry.
// Build with the no_mysql tag to leave the MySQL driver out of the binary.
package mysql
