package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/annel0/stackattack/internal/logging"
)

// ErrDevTokensDisabled - выпуск токенов по ID игрока без пароля выключен
var ErrDevTokensDisabled = errors.New("выпуск dev-токенов отключён")

// Service объединяет учётные записи и выпуск токенов.
// Используется REST эндпоинтом /api/auth/token и сетевым сервером.
type Service struct {
	users          UserRepository
	tokens         *TokenIssuer
	allowDevTokens bool
}

// ServiceOptions - параметры сервиса аутентификации
type ServiceOptions struct {
	Secret         string        // base64, пустой = случайный
	TokenTTL       time.Duration // 0 = 24 часа
	AllowDevTokens bool          // разрешить токены по player_id без пароля
}

// NewService создаёт сервис аутентификации поверх репозитория пользователей
func NewService(users UserRepository, opts ServiceOptions) (*Service, error) {
	tokens, err := NewTokenIssuer(opts.Secret, opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	if opts.Secret == "" {
		logging.Warn("⚠️ JWT секрет не задан, используется случайный: токены не переживут перезапуск")
	}
	return &Service{users: users, tokens: tokens, allowDevTokens: opts.AllowDevTokens}, nil
}

// Login проверяет пароль и выпускает токен.
func (s *Service) Login(username, password string) (string, *User, error) {
	user, err := s.users.ValidateCredentials(username, password)
	if err != nil {
		logging.Debug("Неудачный вход пользователя %q: %v", username, err)
		return "", nil, err
	}

	token, err := s.tokens.IssueFor(user)
	if err != nil {
		return "", nil, fmt.Errorf("не удалось подписать токен: %w", err)
	}
	logging.Info("🔑 Выдан токен игроку %d (%s)", user.ID, user.Username)
	return token, user, nil
}

// DevToken выпускает токен для произвольного игрока без пароля.
func (s *Service) DevToken(playerID uint64) (string, error) {
	if !s.allowDevTokens {
		return "", ErrDevTokensDisabled
	}
	return s.tokens.Issue(playerID, fmt.Sprintf("dev-%d", playerID), false)
}

// Authenticate проверяет токен и возвращает ID игрока.
func (s *Service) Authenticate(token string) (uint64, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return 0, err
	}
	return claims.PlayerID, nil
}

// Validate проверяет токен и возвращает все claims.
func (s *Service) Validate(token string) (*Claims, error) {
	return s.tokens.Validate(token)
}
