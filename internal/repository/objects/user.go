// Package objects implements repositories on top of a storage.Client.
package objects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/storage"
)

// UserSchema is declared for user objects
var UserSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "userId": { "type": "number" },
    "authorized": { "type": "boolean" },
    "createdAt": { "type": "string", "format": "date-time" }
  },
  "required": ["userId", "authorized", "createdAt"]
}`)

// UserRepo implements repository.UserRepository. Each user is one object
// named after its Telegram id.
type UserRepo struct {
	client storage.Client
}

// NewUserRepo declares the user schema and creates a new user repository
func NewUserRepo(ctx context.Context, client storage.Client) (*UserRepo, error) {
	if err := client.DeclareType(ctx, domain.UserType, UserSchema); err != nil {
		return nil, fmt.Errorf("failed to declare user schema: %w", err)
	}
	return &UserRepo{client: client}, nil
}

func userPath(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (r *UserRepo) get(ctx context.Context, userID int64) (*domain.User, error) {
	body, err := r.client.GetObject(ctx, userPath(userID))
	if err != nil {
		return nil, err
	}

	var u domain.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user %d: %w", userID, err)
	}
	return &u, nil
}

// IsAuthorized checks if user is authorized
func (r *UserRepo) IsAuthorized(ctx context.Context, userID int64) (bool, error) {
	u, err := r.get(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		// User doesn't exist yet
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Authorized, nil
}

// AuthorizeUser marks user as authorized, creating it if needed
func (r *UserRepo) AuthorizeUser(ctx context.Context, userID int64) error {
	u, err := r.get(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		u = &domain.User{UserID: userID, CreatedAt: time.Now().UTC()}
	} else if err != nil {
		return err
	}

	u.Authorized = true
	return r.client.StoreObject(ctx, domain.UserType, userPath(userID), u)
}

// EnsureUserExists creates user if not exists
func (r *UserRepo) EnsureUserExists(ctx context.Context, userID int64) error {
	_, err := r.get(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	u := domain.User{UserID: userID, Authorized: false, CreatedAt: time.Now().UTC()}
	return r.client.StoreObject(ctx, domain.UserType, userPath(userID), u)
}
