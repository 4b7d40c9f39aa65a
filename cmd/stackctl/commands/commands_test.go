package commands

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/annel0/stackattack/internal/api"
	"github.com/annel0/stackattack/internal/auth"
	"github.com/annel0/stackattack/internal/network"
	"github.com/annel0/stackattack/internal/transfer"
	"github.com/annel0/stackattack/internal/world"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func newRestServer(t *testing.T, devTokens bool) (*httptest.Server, *auth.Service) {
	t.Helper()

	users, err := auth.NewDevUserRepo()
	require.NoError(t, err)
	svc, err := auth.NewService(users, auth.ServiceOptions{Secret: auth.GenerateSecureSecret(), AllowDevTokens: devTokens})
	require.NoError(t, err)

	w := world.New(world.Options{})
	d := network.NewDispatcher(transfer.NewEngine(transfer.Options{Host: w}), 4)
	d.Start()
	t.Cleanup(d.Stop)

	reg := prometheus.NewRegistry()
	rs, err := api.NewRestServer(api.Config{Auth: svc, World: w, Operations: d, Registerer: reg, Gatherer: reg})
	require.NoError(t, err)

	srv := httptest.NewServer(rs.Handler())
	t.Cleanup(srv.Close)
	return srv, svc
}

func TestRequestTokenByPassword(t *testing.T) {
	srv, svc := newRestServer(t, false)

	resp, err := requestToken(srv.URL, api.TokenRequest{Username: "admin", Password: "admin"})
	require.NoError(t, err)
	assert.True(t, resp.IsAdmin)

	playerID, err := svc.Authenticate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.PlayerID, playerID)
}

func TestRequestTokenErrors(t *testing.T) {
	srv, _ := newRestServer(t, false)

	_, err := requestToken(srv.URL, api.TokenRequest{Username: "test", Password: "wrong"})
	if err == nil {
		t.Fatalf("Ожидалась ошибка при неверном пароле")
	}

	_, err = requestToken(srv.URL, api.TokenRequest{PlayerID: 7})
	assert.Error(t, err, "dev-токены выключены")
}

func TestRequestDevToken(t *testing.T) {
	srv, svc := newRestServer(t, true)

	resp, err := requestToken(srv.URL, api.TokenRequest{PlayerID: 7})
	require.NoError(t, err)

	playerID, err := svc.Authenticate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), playerID)
}

func TestDialRejectsUnknownTransport(t *testing.T) {
	old := transportName
	transportName = "udp"
	defer func() { transportName = old }()

	_, err := dial(context.Background())
	assert.Error(t, err)
}

func TestTransferCommandsRegistered(t *testing.T) {
	for _, name := range []string{"quickstack", "deposit", "withdraw", "ping", "token"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
