package repository

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"kidneyguard-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryUsersRepository: in-memory fallback for dev and tests.
type MemoryUsersRepository struct {
	mu        sync.RWMutex
	users     map[string]*domain.User // userID -> user
	byAccount map[string]string       // account -> userID
}

func NewMemoryUsersRepository() *MemoryUsersRepository {
	return &MemoryUsersRepository{
		users:     map[string]*domain.User{},
		byAccount: map[string]string{},
	}
}

var _ UsersRepository = (*MemoryUsersRepository)(nil)

func (r *MemoryUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (r *MemoryUsersRepository) GetUserByAccount(ctx context.Context, account string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAccount[strings.TrimSpace(account)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r.users[id]
	return &clone, nil
}

func (r *MemoryUsersRepository) CreateUser(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAccount[u.Account]; exists {
		return ErrDuplicateAccount
	}
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = "active"
	}
	u.CreatedAt = time.Now()
	clone := *u
	r.users[u.UserID] = &clone
	r.byAccount[u.Account] = u.UserID
	return nil
}

func (r *MemoryUsersRepository) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	if p.AgeYears != nil {
		u.AgeYears = sql.NullInt64{Int64: *p.AgeYears, Valid: true}
	}
	if p.Gender != nil {
		u.Gender = sql.NullString{String: strings.ToLower(*p.Gender), Valid: true}
	}
	if p.MedicalConditions != nil {
		u.MedicalConditions = append([]string{}, (*p.MedicalConditions)...)
	}
	if p.SmokeAlcohol != nil {
		u.SmokeAlcohol = sql.NullString{String: *p.SmokeAlcohol, Valid: true}
	}
	return nil
}

func (r *MemoryUsersRepository) UpdateVitals(ctx context.Context, userID string, vitals []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.Vitals = append([]byte{}, vitals...)
	return nil
}

func (r *MemoryUsersRepository) TouchLastLogin(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[userID]; ok {
		u.LastLoginAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return nil
}
