package database

import (
	"fmt"
	"strconv"
)

// Dialect captures the SQL differences between the supported backends.
type Dialect interface {
	// Name is the database/sql driver name.
	Name() string
	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder(n int) string
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string           { return "mysql" }
func (mysqlDialect) Placeholder(int) string { return "?" }

type postgresDialect struct{}

func (postgresDialect) Name() string             { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

var (
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
