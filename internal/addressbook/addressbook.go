// Package addressbook implements the address operations of a user's address book. Every
// operation takes the caller identity explicitly and only touches addresses owned by the caller.
package addressbook

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/dirk.krummacker/address-book/internal/auth"
	"gitlab.com/dirk.krummacker/address-book/internal/common"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/query"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
)

// ListOptions are the optional parameters of a listing.
type ListOptions struct {
	Search   string
	Category model.Category
	Sort     model.Sort
	Limit    int
	Offset   int
}

// Service provides list, create, get, update and delete on addresses.
type Service struct {
	addresses *store.AddressStore
	now       func() time.Time
}

// NewService creates the address service on top of the given store.
func NewService(addresses *store.AddressStore) *Service {
	return &Service{
		addresses: addresses,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// List returns the caller's addresses matching the options, ordered by the single requested
// sort key.
func (s *Service) List(ctx context.Context, caller string, opts ListOptions) ([]model.Address, error) {
	owner, err := auth.ResolveUserId(caller)
	if err != nil {
		return nil, err
	}
	return s.addresses.List(ctx, query.AddressQuery{
		Owner:    owner,
		Search:   opts.Search,
		Category: opts.Category,
		Sort:     opts.Sort,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

// Create stores a new address owned by the caller and returns it as stored, including the
// generated id and creation time. An unset favourite flag is stored as false.
func (s *Service) Create(ctx context.Context, caller string, input model.Address) (*model.Address, error) {
	owner, err := auth.ResolveUserId(caller)
	if err != nil {
		return nil, err
	}
	address := input
	address.Id = 0
	address.Favourite = favouriteOrFalse(input.Favourite)
	createdAt := s.now()
	address.CreatedAt = &createdAt
	address.UserId = &owner

	id, err := s.addresses.Insert(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.addresses.GetByID(ctx, id)
}

// Get returns the caller's address with the given id, or common.ErrNotFound.
func (s *Service) Get(ctx context.Context, caller string, id int64) (*model.Address, error) {
	owner, err := auth.ResolveUserId(caller)
	if err != nil {
		return nil, err
	}
	return s.addresses.GetOwned(ctx, id, owner)
}

// Update overwrites every field of the caller's address identified by input.Id and returns the
// address as stored afterwards. The creation time and the owner are kept. An id that does not
// exist or belongs to someone else yields common.ErrNotFound.
func (s *Service) Update(ctx context.Context, caller string, input model.Address) (*model.Address, error) {
	owner, err := auth.ResolveUserId(caller)
	if err != nil {
		return nil, err
	}
	if input.Id == 0 {
		return nil, fmt.Errorf("%w: the id of the address is not set", common.ErrInvalidArgument)
	}

	var updated *model.Address
	err = s.addresses.WithTx(ctx, func(tx *store.AddressStore) error {
		existing, err := tx.GetOwned(ctx, input.Id, owner)
		if err != nil {
			return err
		}
		address := input
		address.Favourite = favouriteOrFalse(input.Favourite)
		address.CreatedAt = existing.CreatedAt
		address.UserId = &owner
		if err := tx.Update(ctx, address); err != nil {
			return err
		}
		updated, err = tx.GetByID(ctx, input.Id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the caller's address with the given id. It reports whether an address was
// removed, so it returns false for unknown ids and for addresses of other users.
func (s *Service) Delete(ctx context.Context, caller string, id int64) (bool, error) {
	owner, err := auth.ResolveUserId(caller)
	if err != nil {
		return false, err
	}
	return s.addresses.Delete(ctx, id, owner)
}

func favouriteOrFalse(favourite *bool) *bool {
	value := favourite != nil && *favourite
	return &value
}
