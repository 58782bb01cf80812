// Package store provides the database access for addresses and users.
//
// The stores work on top of sqlx and support MySQL (driver "mysql") and PostgreSQL (driver
// "pgx"). Statements are written with '?' placeholders and rebound for the connected driver.
package store

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// PoolOptions tune the connection pool of the database handle.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open initializes a database handle for the given driver and DSN and verifies that the
// database is reachable.
func Open(ctx context.Context, driverName string, dsn string, pool PoolOptions) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// WithTx begins a transaction, runs fn with the transaction, and then commits on success or
// rolls back on error or panic. Panics are rethrown.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db begin error: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}

// insertReturningId executes a named INSERT statement and returns the generated id. PostgreSQL
// does not support LastInsertId, so the id is read with a RETURNING clause there.
func insertReturningId(ctx context.Context, ext sqlx.ExtContext, query string, arg interface{}) (int64, error) {
	named, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, err
	}
	if sqlx.BindType(ext.DriverName()) == sqlx.DOLLAR {
		var id int64
		err = ext.QueryRowxContext(ctx, ext.Rebind(named+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	result, err := ext.ExecContext(ctx, ext.Rebind(named), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// execNamed executes a named statement against ext.
func execNamed(ctx context.Context, ext sqlx.ExtContext, query string, arg interface{}) (int64, error) {
	named, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, err
	}
	result, err := ext.ExecContext(ctx, ext.Rebind(named), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
