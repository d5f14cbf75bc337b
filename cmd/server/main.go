package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/mmo-tiles/internal/api"
	"github.com/annel0/mmo-tiles/internal/auth"
	"github.com/annel0/mmo-tiles/internal/config"
	"github.com/annel0/mmo-tiles/internal/eventbus"
	"github.com/annel0/mmo-tiles/internal/game"
	"github.com/annel0/mmo-tiles/internal/logging"
	"github.com/annel0/mmo-tiles/internal/observability"
	"github.com/annel0/mmo-tiles/internal/scheduler"
	"github.com/annel0/mmo-tiles/internal/storage"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/npc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "YAML конфигурация (по умолчанию $GAME_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := initLogging(cfg.Server); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func initLogging(cfg config.ServerConfig) error {
	if cfg.LogDir != "" {
		logging.LogDir = cfg.LogDir
	}
	logger, err := logging.NewLogger("server")
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		logger.SetLevels(logging.ParseLevel(cfg.LogLevel), logging.TRACE)
	}
	logging.SetDefaultLogger(logger)
	return logging.SetComponentLevels(cfg.LogLevels)
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("🎮 Запуск сервера клеточного мира...")
	state := game.NewState()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("⚠️ Телеметрия недоступна: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer shutdownTelemetry(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === ШИНА СОБЫТИЙ ===
	bus, closeBus := openBus(cfg.EventBus)
	defer closeBus()
	exporter := eventbus.NewMetricsExporter(bus, reg)
	go exporter.Run(ctx, 5*time.Second)
	if _, err := eventbus.StartLoggingListener(ctx, bus, eventbus.Filter{}); err != nil {
		logging.Warn("⚠️ Журнал событий не подписан: %v", err)
	}

	// === КАРТА ===
	catalog, err := loadCatalog(cfg.World.ItemsPath)
	if err != nil {
		return err
	}
	m := world.NewMap(catalog)
	genCfg := generatorConfig(cfg.World.Generator)
	if err := world.NewGenerator(genCfg).Generate(m); err != nil {
		return fmt.Errorf("генерация карты: %w", err)
	}
	w := world.New(m, nil, world.Options{
		Bus:     bus,
		Metrics: world.NewMetrics(reg),
		Seed:    genCfg.Seed,
		Source:  cfg.Login.WorldName,
	})
	defer w.Close()
	logging.Info("🗺️ Карта %dx%d готова, храм %s", genCfg.Width, genCfg.Height, genCfg.Temple)

	// === ПОТОК МИРА ===
	dispatcher := scheduler.NewDispatcher()
	dispatcher.Start()
	defer dispatcher.Shutdown()
	sched := scheduler.NewScheduler(dispatcher)
	sched.Start()
	defer sched.Shutdown()

	npcs, err := npc.NewManager(w, npc.Options{Dir: cfg.World.NpcsPath, Bus: bus})
	if err != nil {
		logging.Warn("⚠️ Описания NPC не загружены: %v", err)
		npcs, _ = npc.NewManager(w, npc.Options{Bus: bus})
	}
	if err := dispatcher.Do(ctx, func() {
		for _, spawn := range cfg.World.Npcs {
			if _, err := npcs.Spawn(spawn.Name, vec.NewPosition(spawn.X, spawn.Y, spawn.Z)); err != nil {
				logging.Warn("⚠️ NPC %s не появился: %v", spawn.Name, err)
			}
		}
		npcs.Start(sched)
	}); err != nil {
		return err
	}

	go w.Run(ctx, cfg.World.FlushInterval(), func(task func()) { dispatcher.Add(task) })

	// === УЧЁТНЫЕ ЗАПИСИ И ПОЗИЦИИ ===
	accounts, err := auth.NewAccountRepo(ctx, cfg.Login, cfg.Storage)
	if err != nil {
		return err
	}
	defer accounts.Close()
	positions := storage.NewPositionRepo(ctx, cfg.Storage)
	defer positions.Close()

	sessions := auth.NewSessionIssuer([]byte(cfg.Login.GetJWTSecret()), cfg.Login.SessionTTL())
	login := auth.NewLoginService(accounts, sessions, state, auth.LoginOptions{
		MotdNumber:  cfg.Login.MotdNumber,
		Motd:        cfg.Login.Motd,
		World:       auth.WorldEntry{Name: cfg.Login.WorldName, Host: cfg.Login.Host, Port: cfg.Login.Port},
		FreePremium: cfg.Login.FreePremium,
	})
	svc := game.NewService(game.Options{
		World:      w,
		Dispatcher: dispatcher,
		Sessions:   sessions,
		Accounts:   accounts,
		Positions:  positions,
		State:      state,
		Npcs:       npcs,
	})
	go svc.RunAutosave(ctx, time.Minute)

	// === HTTP ===
	restAddr := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	rest := api.NewRestServer(api.Config{
		Login:       login,
		Sessions:    sessions,
		Game:        svc,
		Registerer:  reg,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	restServer := &http.Server{Addr: restAddr, Handler: rest.Handler(), ReadHeaderTimeout: 10 * time.Second}

	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 2)
	for _, srv := range []*http.Server{restServer, metricsServer} {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("HTTP %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	state.Set(auth.GameStateNormal)
	logging.Info("✅ Сервер запущен")
	logging.Info("   🌐 REST API: http://localhost%s", restAddr)
	logging.Info("   📊 Prometheus: http://localhost%s/metrics", metricsAddr)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restAddr)

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал, завершение работы...")
	case err = <-serveErr:
		logging.Error("❌ %v", err)
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if shutdownErr := svc.Shutdown(shutdownCtx); shutdownErr != nil {
		logging.Error("❌ Ошибки при выходе персонажей: %v", shutdownErr)
	}
	for _, srv := range []*http.Server{restServer, metricsServer} {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logging.Error("❌ Остановка HTTP %s: %v", srv.Addr, shutdownErr)
		}
	}
	// последние события уходят подписчикам до закрытия шины
	_ = dispatcher.Do(shutdownCtx, func() { w.FlushEvents(shutdownCtx) })

	logging.Info("👋 Сервер успешно остановлен")
	return err
}

// openBus JetStream при заданном URL, иначе шина в памяти
func openBus(cfg config.EventBusConfig) (eventbus.EventBus, func()) {
	if cfg.URL != "" {
		js, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{
			URL:       cfg.URL,
			Stream:    cfg.Stream,
			Retention: time.Duration(cfg.Retention) * time.Hour,
			Compress:  cfg.Compress,
		})
		if err == nil {
			logging.Info("📨 Шина событий: NATS JetStream %s (поток %s)", cfg.URL, cfg.Stream)
			return js, closer(js)
		}
		logging.Warn("⚠️ NATS недоступен: %v. Используется шина в памяти", err)
	}
	mem := eventbus.NewMemoryBus(1024)
	logging.Info("📨 Шина событий: в памяти")
	return mem, closer(mem)
}

func closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			logging.Warn("⚠️ Закрытие шины событий: %v", err)
		}
	}
}

func loadCatalog(path string) (*item.Catalog, error) {
	if path == "" {
		return item.DefaultCatalog(), nil
	}
	catalog, err := item.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("каталог предметов: %w", err)
	}
	logging.Info("📦 Каталог предметов: %s", path)
	return catalog, nil
}

// generatorConfig переносит размеры из конфигурации; храм в центре мира
func generatorConfig(cfg config.GeneratorConfig) world.GeneratorConfig {
	gen := world.DefaultGeneratorConfig()
	if cfg.Width > 0 {
		gen.Width = uint16(cfg.Width)
	}
	if cfg.Height > 0 {
		gen.Height = uint16(cfg.Height)
	}
	if cfg.Floor <= vec.MaxFloor {
		gen.Floor = cfg.Floor
	}
	if cfg.Seed != 0 {
		gen.Seed = cfg.Seed
	}
	gen.Temple = vec.NewPosition(gen.Width/2, gen.Height/2, gen.Floor)
	return gen
}
