package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/stackattack/internal/api"
	"github.com/spf13/cobra"
)

var (
	restURL  string
	username string
	password string
	playerID uint64
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Получить JWT игрока через REST API",
	Example: `  stackctl token --username test --password test
  stackctl token --player-id 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := requestToken(restURL, api.TokenRequest{Username: username, Password: password, PlayerID: playerID})
		if err != nil {
			return failure("Не удалось получить токен", err)
		}
		success("токен игрока %d (admin=%v)", resp.PlayerID, resp.IsAdmin)
		fmt.Println(resp.Token)
		return nil
	},
}

func requestToken(baseURL string, req api.TokenRequest) (*api.TokenResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	httpResp, err := httpClient.Post(baseURL+"/api/auth/token", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var token api.TokenResponse
	envelope := api.GenericResponse{Data: &token}
	if err := json.NewDecoder(httpResp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("неверный ответ сервера (HTTP %d): %w", httpResp.StatusCode, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, envelope.Message)
	}
	return &token, nil
}

func init() {
	tokenCmd.Flags().StringVar(&restURL, "rest", "http://127.0.0.1:8088", "адрес REST API")
	tokenCmd.Flags().StringVar(&username, "username", "", "имя пользователя")
	tokenCmd.Flags().StringVar(&password, "password", "", "пароль")
	tokenCmd.Flags().Uint64Var(&playerID, "player-id", 0, "ID игрока для dev-токена")
	rootCmd.AddCommand(tokenCmd)
}
