package addressbook

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/address-book/internal/common"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
)

var addressColumns = []string{
	"id", "first_name", "last_name", "email", "phone", "postal_address", "favourite", "created_at", "user_id",
}

var (
	now      = time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)
	earlier  = time.Date(2020, time.January, 1, 8, 0, 0, 0, time.UTC)
	byIdOnly = regexp.QuoteMeta("FROM address WHERE id = ?") + "$"
	byOwner  = regexp.QuoteMeta("FROM address WHERE id = ? AND user_id = ?")
)

// createService builds the service on a mock database with a fixed clock.
func createService(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	service := NewService(store.NewAddressStore(sqlx.NewDb(mockDB, "mysql")))
	service.now = func() time.Time { return now }
	return service, mock, func() { mockDB.Close() }
}

func ptr[T any](v T) *T {
	return &v
}

// TestCreateDefaultsFavourite creates the address of the Jane Doe scenario without a favourite
// flag. It expects that the stored record has favourite=false, the generated id, the current
// time as creation time and the caller as owner.
func TestCreateDefaultsFavourite(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	mock.ExpectExec("INSERT INTO address").
		WithArgs("Jane", "Doe", "jane@x.com", "123", "1 Main St", false, now, int64(7)).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(byIdOnly).
		WithArgs(int64(42)).
		WillReturnRows(mock.NewRows(addressColumns).
			AddRow(42, "Jane", "Doe", "jane@x.com", "123", "1 Main St", false, now, 7))

	address, err := service.Create(context.Background(), "7", model.Address{
		FirstName:     ptr("Jane"),
		LastName:      ptr("Doe"),
		Email:         ptr("jane@x.com"),
		Phone:         ptr("123"),
		PostalAddress: ptr("1 Main St"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), address.Id)
	assert.False(t, address.IsFavourite())
	assert.Equal(t, now, *address.CreatedAt)
	assert.Equal(t, int64(7), *address.UserId)
	assert.Equal(t, "Jane", *address.FirstName)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestCreateIgnoresClientManagedFields expects that id, creation time and owner supplied by the
// client are replaced by server values.
func TestCreateIgnoresClientManagedFields(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	mock.ExpectExec("INSERT INTO address").
		WithArgs(nil, nil, nil, nil, nil, true, now, int64(7)).
		WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectQuery(byIdOnly).
		WithArgs(int64(43)).
		WillReturnRows(mock.NewRows(addressColumns).
			AddRow(43, nil, nil, nil, nil, nil, true, now, 7))

	address, err := service.Create(context.Background(), "7", model.Address{
		Id:        99,
		Favourite: ptr(true),
		CreatedAt: ptr(earlier),
		UserId:    ptr(int64(8)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(43), address.Id)
	assert.True(t, address.IsFavourite())
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestCreateInvalidCaller expects a validation error for a caller identity that is not an
// integer, without reaching out to the database.
func TestCreateInvalidCaller(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	_, err := service.Create(context.Background(), "alice", model.Address{})
	assert.True(t, errors.Is(err, common.ErrInvalidCaller))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestListWithoutCaller expects an authentication error when no caller is given.
func TestListWithoutCaller(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	_, err := service.List(context.Background(), "", ListOptions{})
	assert.True(t, errors.Is(err, common.ErrUnauthenticated))
	_, err = service.List(context.Background(), "x1", ListOptions{})
	assert.True(t, errors.Is(err, common.ErrUnauthenticated))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestListPassesOptions expects that owner, search, category, sort and paging reach the query.
func TestListPassesOptions(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	mock.ExpectQuery("WHERE user_id = \\? AND \\((.+)\\) AND favourite = \\? ORDER BY lower\\(last_name\\) LIMIT \\? OFFSET \\?").
		WithArgs(int64(7), "%smith%", "%smith%", "%smith%", "%smith%", true, int64(10), int64(20)).
		WillReturnRows(mock.NewRows(addressColumns).
			AddRow(3, "Ann", "Smith", nil, nil, nil, true, now, 7))

	addresses, err := service.List(context.Background(), "7", ListOptions{
		Search:   "SMITH",
		Category: model.CategoryFavourites,
		Sort:     model.SortLastName,
		Limit:    10,
		Offset:   20,
	})
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, "Smith", *addresses[0].LastName)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestUpdatePreservesCreatedAt updates an address. It expects that the creation time of the
// existing record is written back unchanged and that the favourite flag defaults to false.
func TestUpdatePreservesCreatedAt(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(byOwner).
		WithArgs(int64(17), int64(7)).
		WillReturnRows(mock.NewRows(addressColumns).
			AddRow(17, "Erika", "Mustermann", nil, nil, nil, true, earlier, 7))
	mock.ExpectExec("UPDATE address").
		WithArgs("Rudi", "Völler", nil, "+49 1234567890", nil, false, earlier, int64(17), int64(7)).
		WillReturnResult(sqlmock.NewResult(-1, 1))
	mock.ExpectQuery(byIdOnly).
		WithArgs(int64(17)).
		WillReturnRows(mock.NewRows(addressColumns).
			AddRow(17, "Rudi", "Völler", nil, "+49 1234567890", nil, false, earlier, 7))
	mock.ExpectCommit()

	address, err := service.Update(context.Background(), "7", model.Address{
		Id:        17,
		FirstName: ptr("Rudi"),
		LastName:  ptr("Völler"),
		Phone:     ptr("+49 1234567890"),
		CreatedAt: ptr(now),
	})
	require.NoError(t, err)
	assert.Equal(t, earlier, *address.CreatedAt)
	assert.False(t, address.IsFavourite())
	assert.Equal(t, "Rudi", *address.FirstName)
	assert.Nil(t, address.Email)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestUpdateWithoutId expects an invalid argument error without reaching out to the database.
func TestUpdateWithoutId(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	_, err := service.Update(context.Background(), "7", model.Address{FirstName: ptr("Rudi")})
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestUpdateNotOwned updates an address that does not belong to the caller. It expects a not
// found error and that nothing is written.
func TestUpdateNotOwned(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(byOwner).
		WithArgs(int64(17), int64(8)).
		WillReturnRows(mock.NewRows(addressColumns))
	mock.ExpectRollback()

	_, err := service.Update(context.Background(), "8", model.Address{Id: 17, FirstName: ptr("Mallory")})
	assert.True(t, errors.Is(err, common.ErrNotFound))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestGetScopedByOwner expects that a get of someone else's address is reported as not found.
func TestGetScopedByOwner(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	mock.ExpectQuery(byOwner).
		WithArgs(int64(5), int64(9)).
		WillReturnRows(mock.NewRows(addressColumns))

	_, err := service.Get(context.Background(), "9", 5)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestDeleteTwice deletes the same address twice. It expects true for the first call and false
// for the second one.
func TestDeleteTwice(t *testing.T) {
	service, mock, closeDB := createService(t)
	defer closeDB()

	mock.ExpectExec("DELETE FROM address").
		WithArgs(int64(42), int64(7)).
		WillReturnResult(sqlmock.NewResult(-1, 1))
	mock.ExpectExec("DELETE FROM address").
		WithArgs(int64(42), int64(7)).
		WillReturnResult(sqlmock.NewResult(-1, 0))

	deleted, err := service.Delete(context.Background(), "7", 42)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = service.Delete(context.Background(), "7", 42)
	require.NoError(t, err)
	assert.False(t, deleted)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
