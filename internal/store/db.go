package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/campus-events/apiserver/config"
	"github.com/campus-events/apiserver/internal/db"
)

// Dialect selects the SQL flavour a DB speaks. Queries are written once with
// Postgres-style $n placeholders and rebound for SQLite.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) Dialect {
	if driver == config.DriverSQLite {
		return DialectSQLite
	}
	return DialectPostgres
}

// DB is the connection shared by all repositories. A transaction opened with
// WithTx travels in the context, so repository calls made with that context
// join it.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

func NewDB(db *sql.DB, dialect Dialect) *DB {
	return &DB{db: db, dialect: dialect}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. Nested calls reuse the outer transaction.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

func (d *DB) conn(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return d.db
}

func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query, args = d.rebind(query, args)
	return d.conn(ctx).ExecContext(ctx, query, args...)
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query, args = d.rebind(query, args)
	return d.conn(ctx).QueryContext(ctx, query, args...)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	query, args = d.rebind(query, args)
	return d.conn(ctx).QueryRowContext(ctx, query, args...)
}

// forUpdate returns the row-locking suffix for a SELECT. SQLite has no row
// locks; its single connection already serialises writers.
func (d *DB) forUpdate() string {
	if d.dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// lower returns the case-folding SQL function for the dialect. Postgres LOWER
// follows the database locale; SQLite needs the Unicode-aware function the db
// package registers with the driver.
func (d *DB) lower() string {
	if d.dialect == DialectSQLite {
		return db.SQLiteLowerFunc
	}
	return "LOWER"
}

// rebind rewrites $n placeholders into positional ? markers for SQLite,
// repeating arguments that are referenced more than once.
func (d *DB) rebind(query string, args []any) (string, []any) {
	if d.dialect != DialectSQLite || !strings.Contains(query, "$") {
		return query, args
	}

	var b strings.Builder
	b.Grow(len(query))
	bound := make([]any, 0, len(args))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(query[i+1 : j])
		if err != nil || n < 1 || n > len(args) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
		bound = append(bound, args[n-1])
		i = j - 1
	}
	return b.String(), bound
}
