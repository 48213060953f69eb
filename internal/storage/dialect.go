package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// dialect papers over the few places where SQLite and PostgreSQL disagree.
// Queries are written with ? placeholders and rebound for PostgreSQL.
type dialect struct {
	driver string
}

func newDialect(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return dialect{driver: driver}, nil
	}
	return dialect{}, fmt.Errorf("unsupported db driver %q", driver)
}

func (d dialect) postgres() bool { return d.driver == DriverPostgres }

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if !d.postgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// in renders a set-membership predicate. PostgreSQL binds the whole set as a
// single text[] parameter.
func (d dialect) in(column string, values []string) (string, []any) {
	if d.postgres() {
		return column + " = ANY(?)", []any{pq.Array(values)}
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(values)), ",") + ")", args
}

// snapshotOptions are the options of a Snapshot transaction. PostgreSQL's
// default READ COMMITTED takes a new snapshot per statement; a deferred
// SQLite transaction in WAL mode keeps one from its first read.
func (d dialect) snapshotOptions() *sql.TxOptions {
	if d.postgres() {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// uniqueViolation reports whether err is a unique constraint failure on
// table.column.
func (d dialect) uniqueViolation(err error, table, column string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == table+"_"+column+"_key"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
			strings.Contains(liteErr.Error(), table+"."+column)
	}
	return false
}
