package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtable/internal/events"
	"github.com/lox/holdemtable/internal/server"
	"github.com/lox/holdemtable/internal/store"
)

// ServeCmd runs the HTTP and WebSocket server. Flags override the HCL file.
type ServeCmd struct {
	Config        string `short:"c" default:"holdem.hcl" env:"HOLDEM_CONFIG" help:"HCL configuration file"`
	Addr          string `env:"HOLDEM_ADDR" help:"Listen address, overrides the config file"`
	Store         string `env:"HOLDEM_STORE" help:"Snapshot store: memory, file or redis"`
	SnapshotDir   string `env:"HOLDEM_SNAPSHOT_DIR" help:"Directory for the file snapshot store"`
	RedisAddr     string `env:"HOLDEM_REDIS_ADDR" help:"Redis address for the redis snapshot store"`
	RedisPassword string `env:"HOLDEM_REDIS_PASSWORD" help:"Redis password"`
	HistoryDB     string `env:"HOLDEM_HISTORY_DB" help:"SQLite file for hand history"`
	NATSURL       string `name:"nats-url" env:"HOLDEM_NATS_URL" help:"Publish table events to this NATS server"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := c.apply(cfg.Server); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Server.LogLevel, err)
	}
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := setupLogger(cli.LogFormat, level)

	ctx, cancel := signalContext(logger)
	defer cancel()

	manager, err := buildManager(ctx, cfg.Server, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close stores")
		}
	}()

	restored, err := manager.Restore(ctx)
	if err != nil {
		return err
	}
	for _, spec := range cfg.Tables {
		if _, ok := manager.Table(spec.Name); ok {
			continue
		}
		tc, err := spec.GameConfig()
		if err != nil {
			return fmt.Errorf("table %s: %w", spec.Name, err)
		}
		if _, err := manager.CreateTable(ctx, spec.Name, tc); err != nil {
			return err
		}
	}

	logger.Info().
		Str("address", cfg.GetServerAddress()).
		Str("snapshot_store", cfg.Server.SnapshotStore).
		Int("restored_tables", restored).
		Int("tables", len(manager.ListTables())).
		Msg("Starting holdemtable server")

	srv := server.NewServer(manager, cfg.Server.ActionRate, cfg.Server.ActionBurst, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.GetServerAddress())
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}

func (c *ServeCmd) apply(s *server.ServerSettings) error {
	if c.Addr != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", c.Addr, err)
		}
		if s.Port, err = strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid port in %q: %w", c.Addr, err)
		}
		s.Address = host
	}
	if c.Store != "" {
		s.SnapshotStore = c.Store
	}
	if c.SnapshotDir != "" {
		s.SnapshotDir = c.SnapshotDir
	}
	if c.RedisAddr != "" {
		s.RedisAddr = c.RedisAddr
	}
	if c.RedisPassword != "" {
		s.RedisPassword = c.RedisPassword
	}
	if c.HistoryDB != "" {
		s.HistoryDB = c.HistoryDB
	}
	if c.NATSURL != "" {
		s.NATSURL = c.NATSURL
	}
	return nil
}

func buildManager(ctx context.Context, s *server.ServerSettings, logger zerolog.Logger) (*server.Manager, error) {
	var (
		snapshots store.Snapshots
		history   store.History
		publisher events.Publisher = events.Nop{}
		err       error
	)
	switch s.SnapshotStore {
	case server.StoreFile:
		snapshots, err = store.NewFileSnapshots(s.SnapshotDir)
	case server.StoreRedis:
		snapshots, err = store.NewRedisSnapshots(ctx, store.RedisConfig{Addr: s.RedisAddr, Password: s.RedisPassword, DB: s.RedisDB})
	default:
		snapshots = store.NewMemorySnapshots()
	}
	if err != nil {
		return nil, err
	}

	if s.HistoryDB != "" {
		if history, err = store.OpenSQLiteHistory(s.HistoryDB); err != nil {
			snapshots.Close()
			return nil, err
		}
	} else {
		history = store.NewMemoryHistory()
	}

	if s.NATSURL != "" {
		if publisher, err = events.NewNATSPublisher(s.NATSURL, logger); err != nil {
			snapshots.Close()
			history.Close()
			return nil, err
		}
	}
	return server.NewManager(logger, snapshots, history, publisher, nil), nil
}
