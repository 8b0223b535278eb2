package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/mudgo/internal/config"
	"github.com/udisondev/mudgo/internal/db"
	"github.com/udisondev/mudgo/internal/game/group"
	"github.com/udisondev/mudgo/internal/model"
	"github.com/udisondev/mudgo/internal/timer"
	"github.com/udisondev/mudgo/internal/world"
)

const configPath = "config/worldserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := configPath
	if p := os.Getenv("MUDGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadWorldServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("mudgo world server starting", "log_level", cfg.LogLevel)

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected", "host", cfg.Database.Host, "db", cfg.Database.DBName)

	charRepo := db.NewCharacterRepository(database.Pool())
	srv := &server{
		world:       world.New(),
		ids:         world.NewObjectIDFactory(),
		scheduler:   timer.NewScheduler(),
		tuning:      tuningFromConfig(cfg),
		charRepo:    charRepo,
		persistence: db.NewPersistenceService(database.Pool(), charRepo, db.NewAffectRepository(database.Pool())),
	}
	srv.heartbeat = world.NewHeartbeat(srv.world, srv.scheduler, cfg.TickInterval.Std())
	srv.groups = group.NewManager(srv.scheduler, cfg.InviteTimeout.Std())
	srv.groups.SetOnInviteExpired(func(inviter, invitee *model.Character) {
		slog.Info("group invite expired",
			"inviter", inviter.Name(),
			"invitee", invitee.Name())
	})

	if err := srv.restoreWorld(ctx); err != nil {
		return fmt.Errorf("restoring world: %w", err)
	}
	slog.Info("world ready",
		"characters", srv.world.Count(),
		"tick", cfg.TickInterval,
		"autosave", cfg.AutosaveInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.heartbeat.Run(gctx) })
	g.Go(func() error { return srv.persistence.RunSaveLoop(gctx, srv.world, cfg.AutosaveInterval.Std()) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// server bundles the world context: one scheduler, one heartbeat, one group
// manager, one persistence service. The session layer (out of process for
// now) talks to this.
type server struct {
	world       *world.World
	ids         *world.ObjectIDFactory
	scheduler   *timer.Scheduler
	heartbeat   *world.Heartbeat
	groups      *group.Manager
	tuning      model.Tuning
	charRepo    *db.CharacterRepository
	persistence *db.PersistenceService
}

// restoreWorld loads every persisted character back into the world, wiring
// the logout countdown to save-and-remove.
func (s *server) restoreWorld(ctx context.Context) error {
	names, err := s.charRepo.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		c, err := s.persistence.LoadCharacter(ctx, name, s.ids.NextCharacterID(), s.tuning, s.scheduler)
		if err != nil {
			return fmt.Errorf("loading character %q: %w", name, err)
		}
		s.installHooks(c)
		s.world.Add(c)
	}
	return nil
}

// installHooks wires a character's lifecycle into the world context.
func (s *server) installHooks(c *model.Character) {
	c.SetOnLogout(func() {
		s.world.Remove(c.ObjectID())
		s.groups.Leave(c)
		if err := s.persistence.SaveCharacter(context.Background(), c); err != nil {
			slog.Error("saving character on logout",
				"character", c.Name(),
				"error", err)
		}
		slog.Info("character logged out", "character", c.Name())
	})
	c.SetOnDeath(func() {
		slog.Info("character died", "character", c.Name())
	})
}

// tuningFromConfig maps the config cadences onto the per-character tuning.
func tuningFromConfig(cfg config.WorldServer) model.Tuning {
	return model.Tuning{
		HPRegenInterval:     cfg.HPRegenInterval.Std(),
		SPRegenInterval:     cfg.SPRegenInterval.Std(),
		AffectDecayInterval: cfg.AffectDecayInterval.Std(),
		RestRegenDelay:      cfg.RestRegenDelay.Std(),
		KnockoutDelay:       cfg.KnockoutDelay.Std(),
		LogoutDelay:         cfg.LogoutDelay.Std(),
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
