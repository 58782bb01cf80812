package model

import "time"

// Address is the data structure for one entry of a user's address book.
// All text fields are optional. Favourite, CreatedAt and UserId are always set on stored records.
type Address struct {
	Id            int64      `json:"id"                      db:"id"`
	FirstName     *string    `json:"firstName,omitempty"     db:"first_name"`
	LastName      *string    `json:"lastName,omitempty"      db:"last_name"`
	Email         *string    `json:"email,omitempty"         db:"email"`
	Phone         *string    `json:"phone,omitempty"         db:"phone"`
	PostalAddress *string    `json:"postalAddress,omitempty" db:"postal_address"`
	Favourite     *bool      `json:"favourite,omitempty"     db:"favourite"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"     db:"created_at"`
	UserId        *int64     `json:"userId,omitempty"        db:"user_id"`
}

// IsFavourite reports the favourite flag, treating an unset flag as false.
func (a Address) IsFavourite() bool {
	return a.Favourite != nil && *a.Favourite
}

// User is a registered account as stored in the users table.
type User struct {
	Id       int64  `db:"id"`
	Name     string `db:"name"`
	Username string `db:"username"`
	Password string `db:"password"`
}

// Profile is the public view of a user.
type Profile struct {
	Id          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
}

// Sort selects the single ordering criterion of an address listing.
type Sort string

const (
	SortFirstName Sort = "firstname"
	SortLastName  Sort = "lastname"
	SortEmail     Sort = "email"
	SortFavourite Sort = "favourite"
)

// Category restricts an address listing to a subset of the owner's addresses.
type Category string

const (
	CategoryAll        Category = "all"
	CategoryFavourites Category = "favourites"
)
