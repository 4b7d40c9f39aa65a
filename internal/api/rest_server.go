package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/stackattack/internal/auth"
	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/middleware"
	"github.com/annel0/stackattack/internal/protocol"
	"github.com/annel0/stackattack/internal/transfer"
	"github.com/annel0/stackattack/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Submitter ставит операцию в общую очередь запросов и ждёт результата
type Submitter interface {
	Submit(ctx context.Context, playerID uint64, req protocol.Request) (transfer.Result, error)
	Pending() int
}

// ConnectionCounter сообщает число игровых соединений
type ConnectionCounter interface {
	ConnectionCount() int
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr        string                // адрес для запуска сервера, по умолчанию ":8088"
	Auth        *auth.Service         // токены и учётные записи
	World       *world.World          // контейнеры и инвентари
	Operations  Submitter             // очередь операций
	Connections ConnectionCounter     // nil - не показывать в /health
	Registerer  prometheus.Registerer // nil - глобальный регистр
	Gatherer    prometheus.Gatherer   // nil - глобальный регистр
}

// RestServer - административный REST API
type RestServer struct {
	router *gin.Engine
	server *http.Server
	cfg    Config
	auth   *auth.Service
	world  *world.World
	ops    Submitter
	stats  *hostStats
	logger *logging.Logger
}

// GenericResponse - общий формат ответа
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создаёт REST API сервер
func NewRestServer(cfg Config) (*RestServer, error) {
	if cfg.Auth == nil || cfg.World == nil || cfg.Operations == nil {
		return nil, errors.New("REST серверу нужны Auth, World и Operations")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware("stackattack_rest"))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw, err := middleware.NewPrometheusMiddleware("stackattack_rest", cfg.Registerer, cfg.Gatherer)
	if err != nil {
		return nil, fmt.Errorf("ошибка регистрации HTTP метрик: %w", err)
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	rs := &RestServer{
		router: router,
		cfg:    cfg,
		auth:   cfg.Auth,
		world:  cfg.World,
		ops:    cfg.Operations,
		stats:  newHostStats(),
		logger: logging.GetComponentLogger("rest"),
	}
	rs.setupRoutes()
	return rs, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.POST("/auth/token", rs.handleToken)

	// Защищённые эндпоинты (требуют JWT)
	protected := api.Group("/")
	protected.Use(rs.jwtMiddleware())
	{
		protected.GET("/containers", rs.handleListContainers)
		protected.GET("/containers/:x/:y/:z", rs.handleGetContainer)

		player := protected.Group("/players/:id")
		player.Use(rs.selfOrAdminMiddleware())
		{
			player.GET("/inventory", rs.handleGetPlayerInventory)
			player.POST("/operations", rs.handleOperation)
		}

		// Инструменты администратора
		admin := protected.Group("/")
		admin.Use(rs.adminMiddleware())
		{
			admin.POST("/containers", rs.handlePlaceContainer)
			admin.DELETE("/containers/:x/:y/:z", rs.handleRemoveContainer)
			admin.PUT("/containers/:x/:y/:z/slots/:slot", rs.handlePutContainerSlot)
			admin.PUT("/players/:id/inventory/slots/:slot", rs.handlePutPlayerSlot)
		}
	}
}

// Handler возвращает http.Handler роутера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() {
	rs.server = &http.Server{
		Addr:              rs.cfg.Addr,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		rs.logger.Info("🌐 REST API доступен по адресу %s", rs.cfg.Addr)
		if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.logger.Error("Ошибка REST сервера: %v", err)
		}
	}()
}

// Stop останавливает HTTP сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.server == nil {
		return nil
	}
	return rs.server.Shutdown(ctx)
}

// handleHealth возвращает состояние процесса
func (rs *RestServer) handleHealth(c *gin.Context) {
	report := HealthReport{
		Status:     "ok",
		QueuedOps:  rs.ops.Pending(),
		Containers: len(rs.world.Containers()),
	}
	if rs.cfg.Connections != nil {
		report.Connections = rs.cfg.Connections.ConnectionCount()
	}
	rs.stats.fill(&report)

	c.JSON(http.StatusOK, report)
}
