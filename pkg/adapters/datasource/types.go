package datasource

import "strings"

// DatabaseType identifies the engine a connection string points at.
// The set is closed: anything not recognized is TypeUnknown.
type DatabaseType string

const (
	TypePostgreSQL DatabaseType = "postgresql"
	TypeMySQL      DatabaseType = "mysql"
	TypeMongoDB    DatabaseType = "mongodb"
	TypeUnknown    DatabaseType = "unknown"
)

// schemePrefixes is checked in order; first match wins.
var schemePrefixes = []struct {
	prefix string
	dbType DatabaseType
}{
	{"postgres://", TypePostgreSQL},
	{"postgresql://", TypePostgreSQL},
	{"mysql://", TypeMySQL},
	{"mongodb://", TypeMongoDB},
	{"mongodb+srv://", TypeMongoDB},
}

// Classify infers the database type from the connection string's scheme prefix.
// Matching is case-sensitive and performs no other heuristics.
func Classify(databaseURL string) DatabaseType {
	for _, sp := range schemePrefixes {
		if strings.HasPrefix(databaseURL, sp.prefix) {
			return sp.dbType
		}
	}
	return TypeUnknown
}

// Schemes returns the URL prefixes that classify as t.
func (t DatabaseType) Schemes() []string {
	var out []string
	for _, sp := range schemePrefixes {
		if sp.dbType == t {
			out = append(out, sp.prefix)
		}
	}
	return out
}

// DisplayName returns the human-readable engine name.
func (t DatabaseType) DisplayName() string {
	switch t {
	case TypePostgreSQL:
		return "PostgreSQL"
	case TypeMySQL:
		return "MySQL"
	case TypeMongoDB:
		return "MongoDB"
	default:
		return "Unknown"
	}
}

// ProfileType maps the type onto the vocabulary stored on connection profiles,
// where unrecognized URLs are labelled "other".
func (t DatabaseType) ProfileType() string {
	if t == TypeUnknown || t == "" {
		return "other"
	}
	return string(t)
}

// driverHints tells the operator how to get a driver that was not compiled in.
var driverHints = map[DatabaseType]string{
	TypePostgreSQL: "PostgreSQL support requires the pgx driver (github.com/jackc/pgx/v5), which is not compiled into this binary. Rebuild without the no_postgres build tag",
	TypeMySQL:      "MySQL support requires the MySQL driver (github.com/go-sql-driver/mysql), which is not compiled into this binary. Rebuild without the no_mysql build tag",
	TypeMongoDB:    "MongoDB support requires the MongoDB driver (go.mongodb.org/mongo-driver), which is not compiled into this binary. Rebuild without the no_mongodb build tag",
}

// DriverHint returns the remediation message for a missing engine driver.
func (t DatabaseType) DriverHint() string {
	if hint, ok := driverHints[t]; ok {
		return hint
	}
	return "no driver exists for database type " + string(t)
}
