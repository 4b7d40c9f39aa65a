package auth

import (
	"strings"
	"sync"
	"time"
)

// MemoryUserRepo - потокобезопасное хранилище пользователей в памяти.
// ID назначаются по порядку, начиная с 1.
type MemoryUserRepo struct {
	mu     sync.RWMutex
	users  map[string]*User // ключ = lowercase(username)
	byID   map[uint64]*User
	nextID uint64
}

// NewMemoryUserRepo возвращает пустой репозиторий
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users:  make(map[string]*User),
		byID:   make(map[uint64]*User),
		nextID: 1,
	}
}

// NewDevUserRepo возвращает репозиторий с пользователями для разработки:
// test/test (игрок) и admin/admin (администратор).
func NewDevUserRepo() (*MemoryUserRepo, error) {
	repo := NewMemoryUserRepo()

	for _, u := range []struct {
		name    string
		isAdmin bool
	}{{"test", false}, {"admin", true}} {
		hash, err := HashPassword(u.name)
		if err != nil {
			return nil, err
		}
		if _, err := repo.CreateUser(u.name, hash, u.isAdmin); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// GetUserByUsername возвращает пользователя по имени без учёта регистра.
func (r *MemoryUserRepo) GetUserByUsername(username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[normalize(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByID возвращает пользователя по ID.
func (r *MemoryUserRepo) GetUserByID(id uint64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateUser добавляет пользователя, если имя свободно.
func (r *MemoryUserRepo) CreateUser(username string, passwordHash string, isAdmin bool) (*User, error) {
	key := normalize(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[key]; exists {
		return nil, ErrUserExists
	}

	user := &User{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		IsAdmin:      isAdmin,
	}
	r.nextID++
	r.users[key] = user
	r.byID[user.ID] = user
	return user, nil
}

// ValidateCredentials проверяет пароль и обновляет время входа.
func (r *MemoryUserRepo) ValidateCredentials(username, password string) (*User, error) {
	user, err := r.GetUserByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	r.mu.Lock()
	user.LastLogin = time.Now()
	r.mu.Unlock()

	return user, nil
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
