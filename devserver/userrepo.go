package devserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"github.com/jrsteele09/appo-client/users"
)

type account struct {
	users.User
	PasswordHash string
}

// UserRepo is the in-memory account table of the development backend.
type UserRepo struct {
	users    map[string]*account
	emailIDs map[string]string // lower-cased email to user id
	lock     sync.RWMutex
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:    make(map[string]*account),
		emailIDs: make(map[string]string),
	}
}

// Add stores a user with a bcrypt hash of password. Emails are unique.
func (ur *UserRepo) Add(user users.User, password string, now time.Time) (*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrapf(err, "hash password")
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := ur.emailIDs[email]; ok {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "email %s is already registered", user.Email)
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	ur.users[user.ID] = &account{User: user, PasswordHash: hash}
	ur.emailIDs[email] = user.ID
	return &user, nil
}

// Authenticate checks the credentials against the stored account.
func (ur *UserRepo) Authenticate(creds users.Credentials) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIDs[strings.ToLower(creds.Email)]
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}
	acc := ur.users[id]
	if !users.CheckPasswordHash(creds.Password, acc.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if creds.UserType != "" && creds.UserType != acc.Role {
		return nil, apperrors.ErrRoleMismatch
	}
	if !acc.IsActive {
		return nil, apperrors.ErrUserInactive
	}
	u := acc.User
	return &u, nil
}

func (ur *UserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	acc, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := acc.User
	return &u, nil
}

// Update applies patch to the user. Role and activation cannot be changed
// through the profile.
func (ur *UserRepo) Update(id string, patch users.Patch, now time.Time) (*users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	acc, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	patch.Role = nil
	patch.IsActive = nil
	patch.UpdatedAt = &now

	if patch.Email != nil {
		email := strings.ToLower(*patch.Email)
		if owner, taken := ur.emailIDs[email]; taken && owner != id {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "email %s is already registered", *patch.Email)
		}
		delete(ur.emailIDs, strings.ToLower(acc.Email))
		ur.emailIDs[email] = id
	}
	acc.User = patch.Apply(acc.User)
	u := acc.User
	return &u, nil
}

func (ur *UserRepo) List(offset, limit int) []users.User {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]users.User, 0, len(ur.users))
	for _, acc := range ur.users {
		list = append(list, acc.User)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return paginate(list, offset, limit)
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
