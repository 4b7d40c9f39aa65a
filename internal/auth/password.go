package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// passwordCost - стоимость bcrypt; в тестах понижается до bcrypt.MinCost
var passwordCost = bcrypt.DefaultCost

// HashPassword возвращает bcrypt-хэш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword сравнивает bcrypt-хэш с паролем.
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
