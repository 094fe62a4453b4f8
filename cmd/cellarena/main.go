package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cellarena/server/internal/config"
	"github.com/cellarena/server/internal/core/event"
	coresys "github.com/cellarena/server/internal/core/system"
	"github.com/cellarena/server/internal/data"
	"github.com/cellarena/server/internal/gamemode"
	gonet "github.com/cellarena/server/internal/net"
	"github.com/cellarena/server/internal/persist"
	"github.com/cellarena/server/internal/scripting"
	"github.com/cellarena/server/internal/system"
	"github.com/cellarena/server/internal/world"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("CELLARENA_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Persistence
	var sink persist.Sink = persist.NewLogSink(log)
	if cfg.Database.Enabled {
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.Open(dbCtx, cfg.Database, log)
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		sink = persist.NewRunRepo(db)
	}
	recorder := persist.NewRecorder(sink, cfg.Database.BatchSize, cfg.Database.FlushInterval, log.Named("recorder"))
	recCtx, stopRecorder := context.WithCancel(context.Background())
	go recorder.Run(recCtx)

	// 4. Data tables
	skins, err := data.LoadSkinTable(cfg.Data.SkinsFile)
	if err != nil {
		return fmt.Errorf("load skins: %w", err)
	}
	teams := data.DefaultTeams()
	if cfg.Data.TeamsFile != "" {
		if teams, err = data.LoadTeamPalette(cfg.Data.TeamsFile); err != nil {
			return fmt.Errorf("load teams: %w", err)
		}
	}
	log.Info("data loaded", zap.Int("skins", skins.Count()), zap.Int("teams", teams.Count()))

	// 5. Gamemode, optionally scripted
	var engine *scripting.Engine
	if cfg.Gamemode.UseScripts {
		engine, err = scripting.NewEngine(cfg.Gamemode.ScriptsDir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
	}
	gm, err := gamemode.New(cfg.Gamemode, skins, teams, engine)
	if err != nil {
		return err
	}

	// 6. World
	bus := event.NewBus()
	w := world.New(cfg.World, gm, log.Named("world"), world.WithBus(bus))

	// 7. Network
	netServer, err := gonet.NewServer(cfg.Network, log.Named("net"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go netServer.Serve()

	// 8. Systems, in phase order
	store := gonet.NewSessionStore()
	relay := system.NewRelay()
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, store, w, bus, relay, cfg.Gamemode.ChatEnabled, log))
	for _, s := range system.WorldSteps(w) {
		runner.Register(s)
	}
	runner.Register(system.NewOutputSystem(store, w, relay, cfg.Server.Name, cfg.Server.StartTime, log))
	runner.Register(system.NewStatsSystem(w, bus, recorder, log))
	runner.Register(system.NewCleanupSystem(w, relay))

	log.Info("server ready",
		zap.String("name", cfg.Server.Name),
		zap.String("gamemode", gm.Name()),
		zap.String("transport", cfg.Network.Transport),
		zap.Stringer("addr", netServer.Addr()),
		zap.Duration("tick", cfg.Network.TickRate),
	)

	// 9. Game loop
	ticker := coresys.NewTicker(cfg.Network.TickRate)
	ticker.Run(ctx, func(dt time.Duration) {
		start := time.Now()
		runner.Tick(dt)
		elapsed := time.Since(start)
		w.SetTickTime(elapsed)
		if elapsed > cfg.Network.TickRate {
			phase, spent := runner.Slowest()
			log.Warn("tick overran",
				zap.Duration("took", elapsed),
				zap.Uint64("tick", w.Tick()),
				zap.Stringer("slowest_phase", phase),
				zap.Duration("phase_took", spent),
			)
		}
	})

	// 10. Shutdown
	log.Info("shutting down")
	netServer.Shutdown()
	store.ForEach(func(s *gonet.Session) {
		s.Close(websocket.CloseGoingAway, "Server shutting down")
	})
	// One last drain so events from the final tick reach the recorder.
	runner.TickPhase(coresys.PhaseDrain, 0)
	stopRecorder()
	recorder.Wait()
	if n := recorder.Dropped(); n > 0 {
		log.Warn("recorder dropped records", zap.Int64("count", n))
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
