package database

// Dialect holds the DDL fragments that differ between SQLite and PostgreSQL.
// Statements outside of CREATE TABLE are written once and run on both.
type Dialect struct {
	Name       string
	Driver     string
	PrimaryKey string
	Timestamp  string
	Boolean    string
	Money      string
}

var (
	SQLite = Dialect{
		Name:       "sqlite",
		Driver:     "sqlite3",
		PrimaryKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
		Timestamp:  "TIMESTAMP",
		Boolean:    "BOOLEAN",
		Money:      "NUMERIC(12,2)",
	}

	Postgres = Dialect{
		Name:       "postgres",
		Driver:     "postgres",
		PrimaryKey: "BIGSERIAL PRIMARY KEY",
		Timestamp:  "TIMESTAMPTZ",
		Boolean:    "BOOLEAN",
		Money:      "NUMERIC(12,2)",
	}
)
