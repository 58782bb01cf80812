// Package service exposes the address book as a REST API.
package service

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"gitlab.com/dirk.krummacker/address-book/internal/account"
	"gitlab.com/dirk.krummacker/address-book/internal/addressbook"
	"gitlab.com/dirk.krummacker/address-book/internal/auth"
	"gitlab.com/dirk.krummacker/address-book/internal/common"
	"gitlab.com/dirk.krummacker/address-book/internal/config"
	"gitlab.com/dirk.krummacker/address-book/internal/logging"
	"gitlab.com/dirk.krummacker/address-book/internal/metrics"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/ratelimit"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
	pub "gitlab.com/dirk.krummacker/address-book/pkg/model"
)

// allowedSort are the allowed values for the 'sort' URL parameter.
var allowedSort = []model.Sort{model.SortFirstName, model.SortLastName, model.SortEmail, model.SortFavourite}

// allowedCategory are the allowed values for the 'category' URL parameter.
var allowedCategory = []model.Category{model.CategoryAll, model.CategoryFavourites}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	db             *sqlx.DB
	addresses      *addressbook.Service
	accounts       *account.Service
	secretKey      []byte
	log            logrus.FieldLogger
	metrics        *metrics.Metrics
	limiter        *ratelimit.Limiter
	trustedProxies []string
	requestLogging bool
}

// NewServer wires the stores and services on top of the database handle. The database argument
// can be a real database for production use or a mock database within unit tests.
func NewServer(db *sqlx.DB, cfg *config.Config, log logrus.FieldLogger) *Server {
	secretKey := []byte(cfg.JWTSecret)
	return &Server{
		db:             db,
		addresses:      addressbook.NewService(store.NewAddressStore(db)),
		accounts:       account.NewService(store.NewUserStore(db), secretKey, cfg.TokenTTL, log),
		secretKey:      secretKey,
		log:            log,
		metrics:        metrics.New(),
		limiter:        ratelimit.New(cfg.RateLimit, cfg.RateBurst),
		trustedProxies: cfg.TrustedProxyList(),
		requestLogging: !strings.EqualFold(cfg.GinLogging, "off"),
	}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints.
func (s *Server) SetupHttpRouter() *gin.Engine {
	router := gin.New()
	// X-Forwarded-For is only read from configured proxies.
	if err := router.SetTrustedProxies(s.trustedProxies); err != nil {
		s.log.WithError(err).Error("ignoring invalid trusted proxies")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), logging.RequestID())
	if s.requestLogging {
		router.Use(logging.Requests(s.log))
	} else {
		s.log.Info("Turning off HTTP request logging.")
	}
	router.Use(s.metrics.Middleware())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	limited := router.Group("/", s.limiter.Middleware())
	limited.POST("/register", s.register)
	limited.POST("/login", s.login)

	authenticated := router.Group("/", auth.Middleware(s.secretKey))
	authenticated.GET("/profile", s.profile)
	authenticated.GET("/addresses", s.findAddresses)
	authenticated.POST("/addresses", s.createAddress)
	authenticated.GET("/addresses/:id", s.findAddressByID)
	authenticated.PUT("/addresses/:id", s.updateAddressByID)
	authenticated.DELETE("/addresses/:id", s.deleteAddressByID)
	return router
}

// health responds with 200 if the database answers a ping and with 503 otherwise.
//
// Example REST API call:
//
//	> curl http://localhost:8080/health
func (s *Server) health(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		logging.FromContext(s.log, c).WithError(err).Warn("health check failed")
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"status": "ok"})
}

// register creates a user account.
//
// Example REST API call:
//
//	> curl http://localhost:8080/register --request "POST" --include --header "Content-Type: application/json" --data '{"displayName": "Jane Doe", "username": "jane", "password": "secret"}'
func (s *Server) register(c *gin.Context) {
	var registration pub.Registration
	if err := c.ShouldBindJSON(&registration); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	err := s.accounts.Register(c.Request.Context(), registration.DisplayName, registration.Username, registration.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, gin.H{"message": "user registered"})
}

// login responds with a bearer token for valid credentials.
//
// Example REST API call:
//
//	> curl http://localhost:8080/login --request "POST" --header "Content-Type: application/json" --data '{"username": "jane", "password": "secret"}'
func (s *Server) login(c *gin.Context) {
	var credentials pub.Credentials
	if err := c.ShouldBindJSON(&credentials); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	token, err := s.accounts.Login(c.Request.Context(), credentials.Username, credentials.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, pub.Token{Token: token})
}

// profile responds with the public data of the caller.
//
// Example REST API call:
//
//	> curl http://localhost:8080/profile --header "Authorization: Bearer $TOKEN"
func (s *Server) profile(c *gin.Context) {
	profile, err := s.accounts.Profile(c.Request.Context(), auth.Caller(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, profile)
}

// findAddresses responds with the caller's addresses as JSON. An empty address book yields an
// empty list.
//
// The URL parameter 'search' is matched case-insensitively as a substring of first name, last
// name, email and postal address.
//
// The URL parameter 'category' is either 'all' (the default) or 'favourites'.
//
// The URL parameter 'sort' specifies the single property by which the results are sorted. Valid
// values are 'firstname' (the default), 'lastname', 'email' and 'favourite'. Names and emails
// are compared case-insensitively.
//
// The URL parameters 'limit' and 'offset' page through the sorted result.
//
// REST API calls:
//
//	> curl "http://localhost:8080/addresses" --header "Authorization: Bearer $TOKEN"
//	> curl "http://localhost:8080/addresses?search=doe&category=favourites" --header "Authorization: Bearer $TOKEN"
//	> curl "http://localhost:8080/addresses?sort=email&limit=20&offset=60" --header "Authorization: Bearer $TOKEN"
func (s *Server) findAddresses(c *gin.Context) {
	limit, offset, successLimitAndOffset := parseLimitAndOffset(c)
	if !successLimitAndOffset {
		return
	}
	sort, category, successSortAndCategory := parseSortAndCategory(c)
	if !successSortAndCategory {
		return
	}
	addresses, err := s.addresses.List(c.Request.Context(), auth.Caller(c), addressbook.ListOptions{
		Search:   c.Query("search"),
		Category: category,
		Sort:     sort,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, addresses)
}

// parseLimitAndOffset inspects the URL parameters and determines values for limit and offset of
// the result set. A limit of 0 means no limit.
func parseLimitAndOffset(c *gin.Context) (limit int, offset int, success bool) {
	var err error
	if value := c.Query("limit"); value != "" {
		limit, err = strconv.Atoi(value)
		if err != nil || limit < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid limit parameter"})
			return 0, 0, false
		}
	}
	if value := c.Query("offset"); value != "" {
		offset, err = strconv.Atoi(value)
		if err != nil || offset < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid offset parameter"})
			return 0, 0, false
		}
	}
	return limit, offset, true
}

// parseSortAndCategory inspects the URL parameters and determines the sort key and the category
// of the result set.
func parseSortAndCategory(c *gin.Context) (sort model.Sort, category model.Category, success bool) {
	sort = model.Sort(strings.ToLower(c.DefaultQuery("sort", string(model.SortFirstName))))
	if !slices.Contains(allowedSort, sort) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid sort parameter"})
		return "", "", false
	}
	category = model.Category(strings.ToLower(c.DefaultQuery("category", string(model.CategoryAll))))
	if !slices.Contains(allowedCategory, category) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid category parameter"})
		return sort, "", false
	}
	return sort, category, true
}

// parseId reads the id URL parameter. Ids that are not positive integers cannot exist, so they
// are answered with 404 right away.
func parseId(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// createAddress stores the address specified in the request's JSON for the caller. It responds
// with the full address including the newly assigned id and creation time. Values sent for id,
// createdAt and userId are ignored.
//
// Example REST API call:
//
//	> curl http://localhost:8080/addresses --request "POST" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"firstName": "Jane", "lastName": "Doe", "email": "jane@x.com"}'
func (s *Server) createAddress(c *gin.Context) {
	var newAddress model.Address
	if err := c.ShouldBindJSON(&newAddress); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	created, err := s.addresses.Create(c.Request.Context(), auth.Caller(c), newAddress)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, created)
}

// findAddressByID responds with the caller's address whose id matches the id parameter of the
// request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/addresses/56 --header "Authorization: Bearer $TOKEN"
func (s *Server) findAddressByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	address, err := s.addresses.Get(c.Request.Context(), auth.Caller(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, address)
}

// updateAddressByID replaces every field of the caller's address whose id matches the id
// parameter of the request URL with the values of the JSON. Fields missing from the JSON are
// cleared. It responds with the new version of the address.
//
// Example REST API call:
//
//	> curl http://localhost:8080/addresses/56 --request "PUT" --include --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"firstName": "Jane", "favourite": true}'
func (s *Server) updateAddressByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	var submitted model.Address
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	submitted.Id = id
	updated, err := s.addresses.Update(c.Request.Context(), auth.Caller(c), submitted)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, updated)
}

// deleteAddressByID deletes the caller's address whose id matches the id parameter of the
// request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/addresses/56 --request "DELETE" --header "Authorization: Bearer $TOKEN"
func (s *Server) deleteAddressByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	deleted, err := s.addresses.Delete(c.Request.Context(), auth.Caller(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if deleted {
		c.IndentedJSON(http.StatusOK, gin.H{"message": "address deleted"})
	} else {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "address not found"})
	}
}

// respondError maps the error kinds of the services to HTTP status codes. Unexpected errors are
// logged and answered with a generic message.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
	case errors.Is(err, common.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid username or password"})
	case errors.Is(err, common.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, common.ErrRegistrationFailed):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "registration failed"})
	case errors.Is(err, common.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "address not found"})
	default:
		logging.FromContext(s.log, c).WithError(err).Error("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
