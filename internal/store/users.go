package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/address-book/internal/common"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

const (
	insertUser = `
		INSERT INTO users (name, username, password)
		VALUES (:name, :username, :password)`

	selectUserWhereUsername = `
		SELECT id, name, username, password FROM users WHERE username = ?`

	selectUserWhereId = `
		SELECT id, name, username, password FROM users WHERE id = ?`
)

// UserStore reads and writes the users table.
type UserStore struct {
	ext sqlx.ExtContext
}

// NewUserStore creates a store on top of the given database handle.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{ext: db}
}

// Create inserts the user and returns the generated id.
func (s *UserStore) Create(ctx context.Context, user model.User) (int64, error) {
	id, err := insertReturningId(ctx, s.ext, insertUser, user)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// GetByUsername returns the user with the given username or common.ErrNotFound.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.get(ctx, selectUserWhereUsername, username)
}

// GetByID returns the user with the given id or common.ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.get(ctx, selectUserWhereId, id)
}

func (s *UserStore) get(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	err := sqlx.GetContext(ctx, s.ext, &user, s.ext.Rebind(query), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}
