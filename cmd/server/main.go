package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/stackattack/internal/api"
	"github.com/annel0/stackattack/internal/auth"
	"github.com/annel0/stackattack/internal/config"
	"github.com/annel0/stackattack/internal/eventbus"
	_ "github.com/annel0/stackattack/internal/item/implementations"
	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/network"
	"github.com/annel0/stackattack/internal/observability"
	"github.com/annel0/stackattack/internal/storage"
	invsync "github.com/annel0/stackattack/internal/sync"
	"github.com/annel0/stackattack/internal/transfer"
	"github.com/annel0/stackattack/internal/world"
	_ "github.com/annel0/stackattack/internal/world/block/implementations"
)

const eventSource = "stackattack-server"

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}

	if err := initLogging(cfg.Logging); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🎮 Запуск StackAttack сервера...")

	ctx := context.Background()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		os.Exit(1)
	}

	// === ХРАНИЛИЩЕ ===
	repo, err := storage.Open(&cfg.Storage)
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища %s: %v", cfg.Storage.GetBackend(), err)
		os.Exit(1)
	}
	blocks, err := storage.OpenBlocks(&cfg.Storage)
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища блоков: %v", err)
		os.Exit(1)
	}
	logging.Info("💾 Хранилище инвентарей и блоков: %s", cfg.Storage.GetBackend())

	// === ШИНА СОБЫТИЙ ===
	bus, err := openEventBus(cfg.EventBus)
	if err != nil {
		logging.Error("❌ Ошибка подключения шины событий: %v", err)
		os.Exit(1)
	}
	eventbus.Init(bus)
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Не удалось подписать логгер событий: %v", err)
	}

	exporter, err := eventbus.NewMetricsExporter(bus, nil)
	if err != nil {
		logging.Error("❌ Ошибка регистрации метрик шины: %v", err)
		os.Exit(1)
	}
	exporter.StartHTTP(fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()), nil)

	// === МИР И СОХРАНЕНИЕ ===
	var w *world.World
	flusher := invsync.NewFlusher(invsync.Options{
		Repo:       repo,
		Bus:        bus,
		Source:     eventSource,
		BatchSize:  cfg.Sync.GetBatchSize(),
		FlushEvery: cfg.Sync.GetFlushEvery(),
		Guard:      func(fn func() error) error { return w.Exclusive(fn) },
	})
	w = world.New(world.Options{
		Repo:     repo,
		Blocks:   blocks,
		OnDirty:  flusher.Track,
		OnEvent:  publishBlockEvent,
		OnRemove: flusher.Forget,
	})
	if _, err := w.Restore(ctx); err != nil {
		logging.Error("❌ Ошибка восстановления мира: %v", err)
		os.Exit(1)
	}
	flusher.Start()

	// === ДВИЖОК И ОЧЕРЕДЬ ===
	transferMetrics, err := transfer.NewMetrics(nil)
	if err != nil {
		logging.Error("❌ Ошибка регистрации метрик переноса: %v", err)
		os.Exit(1)
	}
	engine := transfer.NewEngine(transfer.Options{
		Host:    w,
		Bus:     bus,
		Source:  eventSource,
		Metrics: transferMetrics,
		Timeout: cfg.Server.GetRequestTimeout(),
	})
	dispatcher := network.NewDispatcher(engine, cfg.Server.GetQueueSize())
	dispatcher.Start()

	// === АУТЕНТИФИКАЦИЯ ===
	users, err := auth.NewDevUserRepo()
	if err != nil {
		logging.Error("❌ Ошибка создания репозитория пользователей: %v", err)
		os.Exit(1)
	}
	authService, err := auth.NewService(users, auth.ServiceOptions{
		Secret:         cfg.Auth.GetSecret(),
		TokenTTL:       cfg.Auth.GetTokenTTL(),
		AllowDevTokens: cfg.Auth.GetDevTokens(),
	})
	if err != nil {
		logging.Error("❌ Ошибка настройки JWT: %v", err)
		os.Exit(1)
	}

	// === ИГРОВОЙ СЕРВЕР ===
	transport, err := network.ParseTransport(cfg.Server.GetTransport())
	if err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	networkMetrics, err := network.NewMetrics(nil)
	if err != nil {
		logging.Error("❌ Ошибка регистрации сетевых метрик: %v", err)
		os.Exit(1)
	}
	gameServer, err := network.NewServer(network.Options{
		Addr:        cfg.Server.GetAddr(),
		Transport:   transport,
		Auth:        authService,
		Dispatcher:  dispatcher,
		Metrics:     networkMetrics,
		IdleTimeout: cfg.Server.GetIdleTimeout(),
	})
	if err != nil {
		logging.Error("❌ Ошибка создания игрового сервера: %v", err)
		os.Exit(1)
	}
	if err := gameServer.Start(); err != nil {
		logging.Error("❌ Ошибка запуска игрового сервера: %v", err)
		os.Exit(1)
	}

	// === REST API ===
	restAddr := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	restServer, err := api.NewRestServer(api.Config{
		Addr:        restAddr,
		Auth:        authService,
		World:       w,
		Operations:  dispatcher,
		Connections: gameServer,
	})
	if err != nil {
		logging.Error("❌ Ошибка создания REST API: %v", err)
		os.Exit(1)
	}
	restServer.Start()

	logging.Info("✅ Все сервисы запущены и готовы принимать соединения")
	logging.Info("   🎮 Игровой трафик: %s %s", transport, cfg.Server.GetAddr())
	logging.Info("   🌐 REST API: http://localhost%s", restAddr)
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", cfg.Server.GetMetricsPort())
	if cfg.Auth.GetDevTokens() {
		logging.Warn("⚠️ Dev-токены включены: POST %s/api/auth/token {\"player_id\": N}", restAddr)
	}

	// Ждём сигнала для завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	gameServer.Stop()
	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	dispatcher.Stop()

	if err := flusher.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка финального сброса инвентарей: %v", err)
	}
	if err := w.SaveAll(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка сохранения мира: %v", err)
	}

	exporter.Stop()
	if err := bus.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия шины событий: %v", err)
	}
	if err := blocks.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия хранилища блоков: %v", err)
	}
	if err := repo.Close(); err != nil {
		logging.Error("❌ Ошибка закрытия хранилища: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки OpenTelemetry: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

func initLogging(cfg config.LoggingConfig) error {
	level, err := logging.ParseLevel(cfg.GetLevel())
	if err != nil {
		return err
	}
	opts := logging.DefaultOptions()
	opts.Dir = cfg.GetDir()
	opts.MinConsoleLevel = level
	logging.GetLoggerManager().Configure(opts)
	return logging.InitDefaultLoggerWithOptions("server", opts)
}

func openEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	switch cfg.GetKind() {
	case "jetstream", "nats":
		logging.Info("📨 Шина событий: NATS JetStream %s (stream %s)", cfg.GetURL(), cfg.GetStream())
		bus, err := eventbus.NewJetStreamBus(cfg.GetURL(), cfg.GetStream(), cfg.GetRetention())
		if err != nil {
			return nil, err
		}
		return bus, nil
	case "memory", "":
		return eventbus.NewMemoryBus(cfg.GetBuffer()), nil
	default:
		return nil, fmt.Errorf("неизвестный тип шины событий: %q", cfg.GetKind())
	}
}

// publishBlockEvent пересылает установку и удаление блоков в шину
func publishBlockEvent(ev world.BlockEvent) {
	eventType := eventbus.EventBlockSet
	if ev.EventType == world.EventTypeBlockRemoved {
		eventType = eventbus.EventBlockRemoved
	}
	payload := eventbus.BlockChanged{
		Position: ev.Position,
		BlockID:  uint16(ev.Block.ID),
		Name:     ev.Block.Name(),
	}
	if err := eventbus.PublishEvent(context.Background(), eventType, eventSource, payload); err != nil {
		logging.Warn("Событие %s не опубликовано: %v", eventType, err)
	}
}
