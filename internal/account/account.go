// Package account handles registration, login and the profile of the calling user.
package account

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/dirk.krummacker/address-book/internal/auth"
	"gitlab.com/dirk.krummacker/address-book/internal/common"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
)

// Service provides the account operations.
type Service struct {
	users         *store.UserStore
	secretKey     []byte
	tokenValidity time.Duration
	log           logrus.FieldLogger
}

// NewService creates the account service. Tokens issued by Login are signed with secretKey and
// expire after tokenValidity.
func NewService(users *store.UserStore, secretKey []byte, tokenValidity time.Duration, log logrus.FieldLogger) *Service {
	return &Service{users: users, secretKey: secretKey, tokenValidity: tokenValidity, log: log}
}

// HashPassword returns the lowercase hex encoded SHA-256 digest of the password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register creates a user. Every failure, whether a duplicate username, a constraint violation
// or a connectivity problem, is reported as common.ErrRegistrationFailed. The cause is logged.
func (s *Service) Register(ctx context.Context, displayName string, username string, password string) error {
	if username == "" || password == "" {
		return common.ErrRegistrationFailed
	}
	_, err := s.users.Create(ctx, model.User{
		Name:     displayName,
		Username: username,
		Password: HashPassword(password),
	})
	if err != nil {
		s.log.WithError(err).WithField("username", username).Warn("registration failed")
		return common.ErrRegistrationFailed
	}
	return nil
}

// Login checks the credentials and returns a signed bearer token for the user. Unknown users and
// wrong passwords both yield common.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username string, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrInvalidCredentials
		}
		return "", err
	}
	candidate := HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(candidate)) != 1 {
		return "", common.ErrInvalidCredentials
	}
	return auth.GenerateToken(user.Id, s.secretKey, s.tokenValidity)
}

// Profile returns the public data of the calling user.
func (s *Service) Profile(ctx context.Context, caller string) (*model.Profile, error) {
	id, err := auth.ResolveUserId(caller)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// The token outlived its user.
			return nil, common.ErrUnauthenticated
		}
		return nil, err
	}
	return &model.Profile{Id: user.Id, DisplayName: user.Name, Username: user.Username}, nil
}
