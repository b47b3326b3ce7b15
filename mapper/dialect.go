// Package mapper converts driver-native column values into the JSON scalar domain
// (null, bool, number, string) shared by every dialect, using the column's declared
// type name as a heuristic since the three dialects expose incompatible native type
// systems and database/sql itself only hands back loosely-typed values for many of them.
package mapper

// Dialect identifies which of the three supported engines a value came from, since the
// same textual type name (e.g. "blob") means different things across them.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)
