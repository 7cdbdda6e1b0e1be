package devbackend

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	errUserExists   = errors.New("user exists")
	errUserNotFound = errors.New("user not found")
)

// Repository persists accounts and reported purchases.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	AddPurchase(ctx context.Context, p Purchase) error
	PurchasesBetween(ctx context.Context, from, to time.Time) ([]Purchase, error)
}

type memoryRepository struct {
	mu        sync.RWMutex
	users     map[string]User
	purchases []Purchase
}

// NewMemoryRepository builds an in-memory account store.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Phone]; exists {
		return errUserExists
	}
	r.users[user.Phone] = user
	return nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[phone]
	if !ok {
		return User{}, errUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, errUserNotFound
}

func (r *memoryRepository) AddPurchase(_ context.Context, p Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchases = append(r.purchases, p)
	return nil
}

func (r *memoryRepository) PurchasesBetween(_ context.Context, from, to time.Time) ([]Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Purchase
	for _, p := range r.purchases {
		if !p.Timestamp.Before(from) && p.Timestamp.Before(to) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
