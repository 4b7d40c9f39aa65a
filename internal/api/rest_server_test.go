package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/stackattack/internal/auth"
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/item"
	_ "github.com/annel0/stackattack/internal/item/implementations"
	"github.com/annel0/stackattack/internal/network"
	"github.com/annel0/stackattack/internal/transfer"
	"github.com/annel0/stackattack/internal/vec"
	"github.com/annel0/stackattack/internal/world"
	"github.com/annel0/stackattack/internal/world/block"
	_ "github.com/annel0/stackattack/internal/world/block/implementations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler http.Handler
	world   *world.World
	auth    *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users, err := auth.NewDevUserRepo()
	require.NoError(t, err)
	svc, err := auth.NewService(users, auth.ServiceOptions{Secret: auth.GenerateSecureSecret(), AllowDevTokens: true})
	require.NoError(t, err)

	w := world.New(world.Options{})
	engine := transfer.NewEngine(transfer.Options{Host: w})

	d := network.NewDispatcher(engine, 8)
	d.Start()
	t.Cleanup(d.Stop)

	reg := prometheus.NewRegistry()
	rs, err := NewRestServer(Config{
		Auth:       svc,
		World:      w,
		Operations: d,
		Registerer: reg,
		Gatherer:   reg,
	})
	require.NoError(t, err)

	return &testEnv{handler: rs.Handler(), world: w, auth: svc}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp GenericResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func (e *testEnv) token(t *testing.T, body TokenRequest) string {
	t.Helper()
	rec, _ := e.do(t, http.MethodPost, "/api/auth/token", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.Token
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "ok", report.Status)
	assert.Greater(t, report.Goroutines, 0)

	rec, _ = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stackattack_rest_http_request_duration_seconds")
}

func TestTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)

	admin := env.token(t, TokenRequest{Username: "admin", Password: "admin"})
	claims, err := env.auth.Validate(admin)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	dev := env.token(t, TokenRequest{PlayerID: 42})
	claims, err = env.auth.Validate(dev)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.PlayerID)

	rec, _ := env.do(t, http.MethodPost, "/api/auth/token", "", TokenRequest{Username: "admin", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/auth/token", "", TokenRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/api/containers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/containers", "мусор", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	player := env.token(t, TokenRequest{PlayerID: 5})
	rec, _ = env.do(t, http.MethodPost, "/api/containers", player, PlaceContainerRequest{Block: "chest"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "установка блоков доступна только администратору")

	rec, _ = env.do(t, http.MethodGet, "/api/players/6/inventory", player, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "чужой инвентарь недоступен")

	rec, _ = env.do(t, http.MethodGet, "/api/players/5/inventory", player, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContainerLifecycleAndOperation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, TokenRequest{Username: "admin", Password: "admin"})
	player := env.token(t, TokenRequest{PlayerID: 5})

	pos := vec.Vec3{X: 3, Y: 70, Z: -4}
	rec, _ := env.do(t, http.MethodPost, "/api/containers", admin, PlaceContainerRequest{Vec3: pos, Block: "Barrel"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/containers", admin, PlaceContainerRequest{Vec3: pos, BlockID: uint16(block.ChestBlockID)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/containers", admin, PlaceContainerRequest{Vec3: vec.Vec3{X: 99}, Block: "stone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Кладём камень в бочку и игроку
	rec, _ = env.do(t, http.MethodPut, "/api/containers/3/70/-4/slots/0", admin, SlotRequest{GoodID: item.StoneGoodID, Quantity: 50})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = env.do(t, http.MethodPut, "/api/players/5/inventory/slots/4", admin, SlotRequest{GoodID: item.StoneGoodID, Quantity: 40})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPut, "/api/containers/3/70/-4/slots/99", admin, SlotRequest{GoodID: item.StoneGoodID, Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = env.do(t, http.MethodPut, "/api/containers/3/70/-4/slots/1", admin, SlotRequest{GoodID: item.StoneGoodID, Quantity: 65})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/players/5/operations", player, OperationRequest{
		Operation: "quickstack",
		Positions: []vec.Vec3{pos, {X: 1000}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var opResp struct {
		Data OperationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opResp))
	assert.Equal(t, 1, opResp.Data.Applied)
	assert.Equal(t, 1, opResp.Data.Skipped)
	assert.Equal(t, int64(14), opResp.Data.Merged)
	assert.Equal(t, int64(26), opResp.Data.Relocated)

	rec, _ = env.do(t, http.MethodGet, "/api/containers/3/70/-4", player, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Data ContainerView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "Barrel", view.Data.Block)
	require.NotNil(t, view.Data.Inventory)
	assert.Equal(t, int32(64), view.Data.Inventory.Slots[0].Quantity)
	assert.Equal(t, int32(26), view.Data.Inventory.Slots[1].Quantity)

	rec, _ = env.do(t, http.MethodPost, "/api/players/5/operations", player, OperationRequest{Operation: "juggle"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/containers/3/70/-4", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/api/containers/3/70/-4", player, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutSlotMarksDirty(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, TokenRequest{Username: "admin", Password: "admin"})

	inv, err := env.world.PlayerInventory(context.Background(), 9)
	require.NoError(t, err)

	rec, _ := env.do(t, http.MethodPut, "/api/players/9/inventory/slots/5", admin, SlotRequest{
		GoodID: item.IngotGoodID, Quantity: 3, Material: "iron",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_ = env.world.Exclusive(func() error {
		assert.Equal(t, []int{5}, inv.DirtySlots())
		assert.Equal(t, "iron", inv.Slot(5).Stack().Attributes[item.AttrMaterial])
		assert.Equal(t, inventory.SlotGeneral, inv.Slot(5).Kind())
		return nil
	})
}
