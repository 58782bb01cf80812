// Package query turns an address listing request into parameterized SQL.
//
// Every fragment that ends up in the statement text comes from a constant or from a fixed map
// keyed by an enumerated value. Values supplied by callers are always passed as arguments.
package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/address-book/internal/common"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// AddressColumns is the column list selected for an address, in model field order.
const AddressColumns = "id, first_name, last_name, email, phone, postal_address, favourite, created_at, user_id"

// orderBy maps each sort key to its ORDER BY expression.
var orderBy = map[model.Sort]string{
	model.SortFirstName: "lower(first_name)",
	model.SortLastName:  "lower(last_name)",
	model.SortEmail:     "lower(email)",
	model.SortFavourite: "favourite",
}

// searchColumns are the columns that the free-text search is matched against.
var searchColumns = []string{"first_name", "last_name", "email", "postal_address"}

// likeEscape is named in every LIKE clause. MySQL has no default escape character under
// NO_BACKSLASH_ESCAPES.
const likeEscape = "!"

// likeEscaper escapes the LIKE wildcards and the escape character itself so that the search text
// matches literally.
var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, `%`, likeEscape+`%`, `_`, likeEscape+`_`)

// AddressQuery describes one listing of a user's addresses.
type AddressQuery struct {
	// Owner is the id of the user whose addresses are listed.
	Owner int64
	// Search is matched case-insensitively as a substring. Empty means no search.
	Search string
	// Category defaults to model.CategoryAll.
	Category model.Category
	// Sort defaults to model.SortFirstName.
	Sort model.Sort
	// Limit is the maximum number of rows, 0 means unlimited.
	Limit int
	// Offset is the number of leading rows to skip.
	Offset int
}

// Normalize fills in the defaults and validates the enumerated values.
func (q AddressQuery) Normalize() (AddressQuery, error) {
	if q.Sort == "" {
		q.Sort = model.SortFirstName
	}
	if _, ok := orderBy[q.Sort]; !ok {
		return q, fmt.Errorf("%w: unknown sort key %q", common.ErrInvalidArgument, q.Sort)
	}
	if q.Category == "" {
		q.Category = model.CategoryAll
	}
	if q.Category != model.CategoryAll && q.Category != model.CategoryFavourites {
		return q, fmt.Errorf("%w: unknown category %q", common.ErrInvalidArgument, q.Category)
	}
	if q.Limit < 0 || q.Offset < 0 {
		return q, fmt.Errorf("%w: negative limit or offset", common.ErrInvalidArgument)
	}
	return q, nil
}

// Build renders the query as SQL for the given sqlx bind type (sqlx.QUESTION for MySQL,
// sqlx.DOLLAR for PostgreSQL) and returns the statement together with its arguments.
func Build(q AddressQuery, bindType int) (string, []interface{}, error) {
	q, err := q.Normalize()
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := []interface{}{q.Owner}
	sb.WriteString("SELECT " + AddressColumns + " FROM address WHERE user_id = ?")

	if q.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q.Search)) + "%"
		predicates := make([]string, 0, len(searchColumns))
		for _, column := range searchColumns {
			predicates = append(predicates, "lower("+column+") LIKE ? ESCAPE '"+likeEscape+"'")
			args = append(args, pattern)
		}
		sb.WriteString(" AND (" + strings.Join(predicates, " OR ") + ")")
	}

	if q.Category == model.CategoryFavourites {
		sb.WriteString(" AND favourite = ?")
		args = append(args, true)
	}

	sb.WriteString(" ORDER BY " + orderBy[q.Sort])

	// MySQL does not accept OFFSET without LIMIT.
	if q.Limit > 0 || q.Offset > 0 {
		limit := int64(q.Limit)
		if limit == 0 {
			limit = math.MaxInt64
		}
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, int64(q.Offset))
	}

	return sqlx.Rebind(bindType, sb.String()), args, nil
}
