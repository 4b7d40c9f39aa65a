package auth

import "errors"

// UserRepository определяет операции хранения учётных записей.
type UserRepository interface {
	// GetUserByUsername возвращает пользователя по имени (без учёта регистра)
	// или ErrUserNotFound.
	GetUserByUsername(username string) (*User, error)

	// GetUserByID возвращает пользователя по ID или ErrUserNotFound.
	GetUserByID(id uint64) (*User, error)

	// CreateUser создаёт пользователя с уже захэшированным паролем.
	// При занятом имени возвращает ErrUserExists.
	CreateUser(username string, passwordHash string, isAdmin bool) (*User, error)

	// ValidateCredentials проверяет имя и пароль и обновляет LastLogin.
	ValidateCredentials(username, password string) (*User, error)
}

// Ошибки репозитория
var (
	ErrUserNotFound       = errors.New("пользователь не найден")
	ErrUserExists         = errors.New("пользователь уже существует")
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
)
