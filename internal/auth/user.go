package auth

import "time"

// User - учётная запись игрока или администратора.
// ID пользователя является ID игрока в мире.
type User struct {
	ID           uint64    // Неизменяемый идентификатор
	Username     string    // Уникальное имя (без учёта регистра)
	PasswordHash string    // bcrypt-хэш пароля
	CreatedAt    time.Time // Время создания
	LastLogin    time.Time // Последний успешный вход
	IsAdmin      bool      // Права администратора
}
