package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/address-book/internal/common"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/query"
)

const (
	insertAddress = `
		INSERT INTO address (first_name, last_name, email, phone, postal_address, favourite, created_at, user_id)
		VALUES (:first_name, :last_name, :email, :phone, :postal_address, :favourite, :created_at, :user_id)`

	selectAddressWhereId = `
		SELECT ` + query.AddressColumns + ` FROM address WHERE id = ?`

	selectAddressWhereIdAndOwner = `
		SELECT ` + query.AddressColumns + ` FROM address WHERE id = ? AND user_id = ?`

	updateAddress = `
		UPDATE address
		SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
			postal_address = :postal_address, favourite = :favourite, created_at = :created_at
		WHERE id = :id AND user_id = :user_id`

	deleteAddressWhereIdAndOwner = `
		DELETE FROM address WHERE id = ? AND user_id = ?`
)

// columnScanner is implemented by both *sqlx.Row and *sqlx.Rows, so single-row and multi-row
// reads share one mapping.
type columnScanner interface {
	StructScan(dest interface{}) error
}

// scanAddress maps the current row of a result set to an address. Columns are matched by name
// using the db tags of model.Address.
func scanAddress(row columnScanner) (model.Address, error) {
	var address model.Address
	err := row.StructScan(&address)
	return address, err
}

// AddressStore reads and writes the address table. It works either on the database handle or,
// when obtained through WithTx, on a transaction.
type AddressStore struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

// NewAddressStore creates a store on top of the given database handle.
func NewAddressStore(db *sqlx.DB) *AddressStore {
	return &AddressStore{db: db, ext: db}
}

// WithTx runs fn with a store bound to a new transaction.
func (s *AddressStore) WithTx(ctx context.Context, fn func(tx *AddressStore) error) error {
	return WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&AddressStore{db: s.db, ext: tx})
	})
}

// List returns the addresses matching q in the order requested by q. The result is never nil.
func (s *AddressStore) List(ctx context.Context, q query.AddressQuery) ([]model.Address, error) {
	statement, args, err := query.Build(q, sqlx.BindType(s.ext.DriverName()))
	if err != nil {
		return nil, err
	}
	rows, err := s.ext.QueryxContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	addresses := []model.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return addresses, nil
}

// Insert stores a new address and returns its generated id.
func (s *AddressStore) Insert(ctx context.Context, address model.Address) (int64, error) {
	id, err := insertReturningId(ctx, s.ext, insertAddress, address)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// GetByID returns the address with the given id regardless of its owner. It returns
// common.ErrNotFound if there is no such address.
func (s *AddressStore) GetByID(ctx context.Context, id int64) (*model.Address, error) {
	row := s.ext.QueryRowxContext(ctx, s.ext.Rebind(selectAddressWhereId), id)
	return s.single(row)
}

// GetOwned returns the address with the given id if it belongs to owner. It returns
// common.ErrNotFound otherwise.
func (s *AddressStore) GetOwned(ctx context.Context, id int64, owner int64) (*model.Address, error) {
	row := s.ext.QueryRowxContext(ctx, s.ext.Rebind(selectAddressWhereIdAndOwner), id, owner)
	return s.single(row)
}

func (s *AddressStore) single(row *sqlx.Row) (*model.Address, error) {
	address, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &address, nil
}

// Update overwrites all columns of the address identified by address.Id and address.UserId.
func (s *AddressStore) Update(ctx context.Context, address model.Address) error {
	if _, err := execNamed(ctx, s.ext, updateAddress, address); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the address with the given id if it belongs to owner. It reports whether a
// row was removed.
func (s *AddressStore) Delete(ctx context.Context, id int64, owner int64) (bool, error) {
	result, err := s.ext.ExecContext(ctx, s.ext.Rebind(deleteAddressWhereIdAndOwner), id, owner)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return rowsAffected > 0, nil
}
