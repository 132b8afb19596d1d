package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/handler"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/scripting"
	"github.com/cavazquez/pyao-server-sub005/internal/system"
	"github.com/cavazquez/pyao-server-sub005/internal/tick"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the server config")
	dataDir := flag.String("data", "gamedata", "directory with item, npc, spell and map catalogues")
	scriptsDir := flag.String("scripts", "scripts", "directory with lua formula overrides")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *dataDir, *scriptsDir, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, dataDir, scriptsDir string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	players, accounts, settings, closeDB := openStores(ctx, cfg, log)
	defer closeDB()
	tunables := persist.NewTunables(settings, 5*time.Second)

	maps, err := data.LoadMaps(filepath.Join(dataDir, "maps"))
	if err != nil {
		return fmt.Errorf("load maps: %w", err)
	}
	items, err := data.LoadItems(filepath.Join(dataDir, "items.toml"))
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	npcTpls, err := data.LoadNPCs(filepath.Join(dataDir, "npcs.toml"))
	if err != nil {
		return fmt.Errorf("load npcs: %w", err)
	}
	spellTpls, err := data.LoadSpells(filepath.Join(dataDir, "spells.toml"))
	if err != nil {
		return fmt.Errorf("load spells: %w", err)
	}
	loot, err := data.LoadLoot(filepath.Join(dataDir, "loot.toml"))
	if err != nil {
		return fmt.Errorf("load loot: %w", err)
	}
	spawns, err := data.LoadSpawns(filepath.Join(dataDir, "spawns.yaml"))
	if err != nil {
		return fmt.Errorf("load spawns: %w", err)
	}
	log.Info("catalogues loaded",
		zap.Int("maps", maps.Count()),
		zap.Int("spawns", len(spawns)))

	lua, err := scripting.NewEngine(scriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}

	state := world.NewState()
	engines := game.NewEngines(cfg.Game, state, maps, items, npcTpls, spellTpls, loot, players, lua, log)

	reg := packet.NewRegistry(log)
	handler.RegisterAll(reg, &handler.Deps{
		Cfg:       cfg,
		State:     state,
		Maps:      maps,
		Items:     items,
		NPCTpls:   npcTpls,
		SpellTpls: spellTpls,
		Players:   players,
		Accounts:  accounts,
		Bcast:     engines.Bcast,
		NPCs:      engines.NPCs,
		Combat:    engines.Combat,
		Spells:    engines.Spells,
		Progress:  engines.Progress,
		StartedAt: time.Now(),
		Log:       log,
	})

	onClose := func(s *net.Session) {
		userID := s.UserID()
		if userID == 0 {
			return
		}
		if v, ok := state.PlayerView(userID); ok {
			state.RemovePlayer(userID)
			engines.Bcast.CharacterRemove(v.Map, 0, v.CharIndex)
		}
		log.Info("player disconnected", zap.Int32("user", userID), zap.String("username", s.Username()))
	}

	srv, err := net.NewServer(cfg.Server.BindAddr(), reg,
		cfg.Server.MaxConnections, cfg.Server.BufferSize,
		cfg.Server.OutQueueSize, cfg.Server.PacketsPerSec,
		onClose, log)
	if err != nil {
		return err
	}

	spawned := engines.NPCs.SpawnFromConfig(spawns)
	log.Info("world populated", zap.Int("npcs", spawned))

	sched := buildScheduler(cfg, state, maps, players, engines, tunables, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv.AcceptLoop()
		return nil
	})
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})

	log.Info("server listening", zap.String("addr", srv.Addr().String()))
	return g.Wait()
}

// openStores connects to postgres, falling back to the in-memory stores
// when no database is reachable so a dev server can run standalone.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (persist.PlayerRepo, persist.AccountRepo, persist.SettingsRepo, func()) {
	if cfg.Database.DSN != "" {
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err == nil {
			if merr := persist.RunMigrations(ctx, db.Pool); merr != nil {
				log.Error("migrations failed", zap.Error(merr))
				db.Close()
			} else {
				log.Info("database connected")
				return persist.NewPGPlayerRepo(db), persist.NewPGAccountRepo(db), persist.NewPGSettingsRepo(db), db.Close
			}
		} else {
			log.Warn("database unavailable, using in-memory stores", zap.Error(err))
		}
	}
	return persist.NewMemPlayerRepo(), persist.NewMemAccountRepo(), persist.NewMemSettingsRepo(), func() {}
}

func buildScheduler(cfg *config.Config, state *world.State, maps *data.MapRegistry, players persist.PlayerRepo, engines *game.Engines, tunables *persist.Tunables, log *zap.Logger) *tick.Scheduler {
	deps := &system.Deps{
		State:   state,
		Maps:    maps,
		Players: players,
		NPCs:    engines.NPCs,
		AI:      engines.AI,
		Combat:  engines.Combat,
		Death:   engines.Death,
		Bcast:   engines.Bcast,
		Game:    cfg.Game,
		Tun:     tunables,
		Log:     log,
	}

	sched := tick.NewScheduler(state, cfg.Game.TickInterval, log)
	sched.AddPlayerEffect(system.NewHungerThirstEffect(deps))
	sched.AddPlayerEffect(system.NewGoldDecayEffect(deps))
	sched.AddPlayerEffect(system.NewMeditationEffect(deps))
	sched.AddPlayerEffect(system.NewStaminaRegenEffect(deps))
	sched.AddPlayerEffect(system.NewPoisonEffect(deps))
	sched.AddPlayerEffect(system.NewAttrModifierEffect(deps))
	sched.AddGlobalEffect(system.NewNPCPoisonEffect(deps))
	sched.AddGlobalEffect(system.NewNPCMovementEffect(deps))
	sched.AddGlobalEffect(system.NewNPCAIEffect(deps))
	sched.AddGlobalEffect(system.NewPetFollowEffect(deps))
	sched.AddGlobalEffect(system.NewMorphExpiryEffect(deps))
	sched.AddGlobalEffect(system.NewSummonExpiryEffect(deps))
	sched.AddGlobalEffect(system.NewRespawnEffect(deps))
	return sched
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	zc.Level = lvl
	return zc.Build()
}
