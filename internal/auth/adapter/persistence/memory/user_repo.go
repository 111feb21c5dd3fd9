package memory

import (
	"context"
	"sync"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/domain/repository"
)

// UserRepository is a map-backed credential store keyed by id with an email index.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]string
}

// NewUserRepository creates an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := model.NormalizeEmail(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return model.ErrUserExists
	}
	if _, taken := r.byID[user.ID]; taken {
		return model.ErrUserExists
	}

	u := *user
	u.Email = email
	r.byID[u.ID] = &u
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *r.byID[id]
	return &u, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
