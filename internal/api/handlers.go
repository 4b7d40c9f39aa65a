package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/annel0/stackattack/internal/auth"
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/item"
	"github.com/annel0/stackattack/internal/protocol"
	"github.com/annel0/stackattack/internal/vec"
	"github.com/annel0/stackattack/internal/world"
	"github.com/annel0/stackattack/internal/world/block"
	"github.com/gin-gonic/gin"
)

// TokenRequest - вход по паролю или dev-токен по ID игрока
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	PlayerID uint64 `json:"player_id"`
}

// TokenResponse - выданный токен
type TokenResponse struct {
	Token    string `json:"token"`
	PlayerID uint64 `json:"player_id"`
	IsAdmin  bool   `json:"is_admin"`
}

// PlaceContainerRequest - установка блока-контейнера
type PlaceContainerRequest struct {
	vec.Vec3
	Block   string `json:"block"`    // имя блока (chest, barrel...)
	BlockID uint16 `json:"block_id"` // используется, если имя не задано
}

// SlotRequest - содержимое слота, нулевое количество очищает слот
type SlotRequest struct {
	GoodID     item.GoodID            `json:"good_id"`
	Quantity   int32                  `json:"quantity"`
	Material   string                 `json:"material,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// OperationRequest - операция над списком контейнеров
type OperationRequest struct {
	Operation string     `json:"operation" binding:"required"`
	Positions []vec.Vec3 `json:"positions"`
}

// OperationResponse - итог операции
type OperationResponse struct {
	Applied   int   `json:"applied"`
	Skipped   int   `json:"skipped"`
	Merged    int64 `json:"merged"`
	Relocated int64 `json:"relocated"`
	Stacks    int   `json:"stacks"`
	Remaining int   `json:"remaining"`
}

// ContainerView - блок и его инвентарь
type ContainerView struct {
	Position  vec.Vec3            `json:"position"`
	Block     string              `json:"block"`
	BlockID   uint16              `json:"block_id"`
	Inventory *inventory.Snapshot `json:"inventory"`
}

func (rs *RestServer) handleToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	switch {
	case req.Username != "":
		token, user, err := rs.auth.Login(req.Username, req.Password)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Неверное имя пользователя или пароль")
			return
		}
		c.JSON(http.StatusOK, GenericResponse{Success: true, Data: TokenResponse{Token: token, PlayerID: user.ID, IsAdmin: user.IsAdmin}})

	case req.PlayerID != 0:
		token, err := rs.auth.DevToken(req.PlayerID)
		if errors.Is(err, auth.ErrDevTokensDisabled) {
			abort(c, http.StatusForbidden, "Выпуск dev-токенов отключён")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "Не удалось выпустить токен")
			return
		}
		c.JSON(http.StatusOK, GenericResponse{Success: true, Data: TokenResponse{Token: token, PlayerID: req.PlayerID}})

	default:
		abort(c, http.StatusBadRequest, "Нужны username/password или player_id")
	}
}

func (rs *RestServer) handleListContainers(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: rs.world.Containers()})
}

func (rs *RestServer) handleGetContainer(c *gin.Context) {
	pos, ok := positionParam(c)
	if !ok {
		return
	}

	b, exists := rs.world.BlockAt(pos)
	if !exists {
		abort(c, http.StatusNotFound, "Блок не найден")
		return
	}

	view := ContainerView{Position: pos, Block: b.Name(), BlockID: uint16(b.ID)}
	_ = rs.world.Exclusive(func() error {
		if inv, err := rs.world.Resolve(pos); err == nil {
			view.Inventory = inv.Snapshot()
		}
		return nil
	})
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: view})
}

func (rs *RestServer) handleGetPlayerInventory(c *gin.Context) {
	inv, ok := rs.playerInventory(c)
	if !ok {
		return
	}

	var snap *inventory.Snapshot
	_ = rs.world.Exclusive(func() error {
		snap = inv.Snapshot()
		return nil
	})
	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: snap})
}

func (rs *RestServer) handleOperation(c *gin.Context) {
	var req OperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	kind, err := inventory.ParseOperationKind(req.Operation)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	playerID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	res, err := rs.ops.Submit(c.Request.Context(), playerID, protocol.Request{Kind: kind, Positions: req.Positions})
	if err != nil {
		rs.logger.Warn("Операция %s игрока %d не выполнена: %v", kind, playerID, err)
		_ = c.Error(err)
		abort(c, http.StatusServiceUnavailable, "Операция не выполнена")
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Data: OperationResponse{
		Applied:   res.Applied,
		Skipped:   res.Skipped,
		Merged:    res.Summary.Merged,
		Relocated: res.Summary.Relocated,
		Stacks:    res.Summary.Stacks,
		Remaining: res.Summary.Remaining,
	}})
}

func (rs *RestServer) handlePlaceContainer(c *gin.Context) {
	var req PlaceContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	id := block.BlockID(req.BlockID)
	if req.Block != "" {
		found, ok := block.Lookup(req.Block)
		if !ok {
			abort(c, http.StatusBadRequest, "Неизвестный блок")
			return
		}
		id = found
	}
	if behavior, ok := block.Get(id); !ok || !behavior.IsContainer() {
		abort(c, http.StatusBadRequest, "Блок не является контейнером")
		return
	}

	if _, err := rs.world.PlaceBlock(c.Request.Context(), req.Vec3, id); err != nil {
		if errors.Is(err, world.ErrOccupied) {
			abort(c, http.StatusConflict, "Позиция занята")
			return
		}
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "Не удалось установить блок")
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Data: req.Vec3})
}

func (rs *RestServer) handleRemoveContainer(c *gin.Context) {
	pos, ok := positionParam(c)
	if !ok {
		return
	}
	if err := rs.world.RemoveBlock(c.Request.Context(), pos); err != nil {
		if errors.Is(err, world.ErrNotContainer) {
			abort(c, http.StatusNotFound, "Блок не найден")
			return
		}
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "Не удалось удалить блок")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true})
}

func (rs *RestServer) handlePutContainerSlot(c *gin.Context) {
	pos, ok := positionParam(c)
	if !ok {
		return
	}
	rs.putSlot(c, func() (*inventory.Inventory, error) { return rs.world.Resolve(pos) })
}

func (rs *RestServer) handlePutPlayerSlot(c *gin.Context) {
	inv, ok := rs.playerInventory(c)
	if !ok {
		return
	}
	rs.putSlot(c, func() (*inventory.Inventory, error) { return inv, nil })
}

// putSlot заменяет содержимое слота под мировой блокировкой и помечает его изменённым
func (rs *RestServer) putSlot(c *gin.Context, resolve func() (*inventory.Inventory, error)) {
	index, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		abort(c, http.StatusBadRequest, "Неверный номер слота")
		return
	}

	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	var stack *item.Stack
	if req.Quantity > 0 {
		good, ok := item.Get(req.GoodID)
		if !ok {
			abort(c, http.StatusBadRequest, "Неизвестный товар")
			return
		}
		if req.Quantity > good.MaxStackSize() {
			abort(c, http.StatusBadRequest, "Количество больше размера стека")
			return
		}
		stack = item.NewStack(good, req.Quantity)
		for k, v := range req.Attributes {
			stack.Attributes[k] = v
		}
		if req.Material != "" {
			stack.Attributes[item.AttrMaterial] = req.Material
		}
	}

	var snap *inventory.Snapshot
	err = rs.world.Exclusive(func() error {
		inv, err := resolve()
		if err != nil {
			return err
		}
		slot := inv.Slot(index)
		if slot == nil {
			return errSlotRange
		}
		slot.SetStack(stack)
		slot.MarkDirty()
		snap = inv.Snapshot()
		return nil
	})

	switch {
	case err == nil:
		c.JSON(http.StatusOK, GenericResponse{Success: true, Data: snap})
	case errors.Is(err, errSlotRange):
		abort(c, http.StatusBadRequest, "Слот вне инвентаря")
	case errors.Is(err, world.ErrNotContainer), errors.Is(err, world.ErrNoInventory):
		abort(c, http.StatusNotFound, "Контейнер не найден")
	default:
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "Не удалось изменить слот")
	}
}

var errSlotRange = errors.New("слот вне инвентаря")

func (rs *RestServer) playerInventory(c *gin.Context) (*inventory.Inventory, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "Неверный ID игрока")
		return nil, false
	}
	inv, err := rs.world.PlayerInventory(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, "Инвентарь игрока недоступен")
		return nil, false
	}
	return inv, true
}

// positionParam разбирает :x/:y/:z
func positionParam(c *gin.Context) (vec.Vec3, bool) {
	var coords [3]int
	for i, name := range []string{"x", "y", "z"} {
		n, err := strconv.Atoi(c.Param(name))
		if err != nil {
			abort(c, http.StatusBadRequest, "Неверные координаты")
			return vec.Vec3{}, false
		}
		coords[i] = n
	}
	return vec.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, true
}
