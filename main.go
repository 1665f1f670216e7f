package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/classify"
	"github.com/lotas/tabgruppen/internal/colors"
	"github.com/lotas/tabgruppen/internal/config"
	"github.com/lotas/tabgruppen/internal/daemon"
	"github.com/lotas/tabgruppen/internal/history"
	"github.com/lotas/tabgruppen/internal/host"
	"github.com/lotas/tabgruppen/internal/organizer"
	"github.com/lotas/tabgruppen/internal/planner"
	"github.com/lotas/tabgruppen/internal/rules"
	"github.com/lotas/tabgruppen/internal/server"
	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/storage"
	"github.com/lotas/tabgruppen/internal/suggest"
	"github.com/lotas/tabgruppen/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the configuration shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:           "tabgruppen",
		Short:         "Tab grouping and pomodoro daemon for the browser extension",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ~/.config/tabgruppen/config.toml)")
	flags.Int(config.KeyPort, config.DefaultPort, "WebSocket port of the daemon")
	flags.String(config.KeyDB, "", "SQLite database path")
	flags.String("firefox-dir", "", "Firefox data directory for offline commands")
	a.v.BindPFlag(config.KeyPort, flags.Lookup(config.KeyPort))
	a.v.BindPFlag(config.KeyDB, flags.Lookup(config.KeyDB))
	a.v.BindPFlag(config.KeyFirefoxDir, flags.Lookup("firefox-dir"))

	root.AddCommand(
		newServeCmd(a),
		newPopupCmd(a),
		newPlanCmd(a),
		newSuggestCmd(a),
		newSettingsCmd(a),
		newProfilesCmd(a),
	)
	return root
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func (a *app) openDB() (*sql.DB, error) {
	db, err := storage.OpenDB(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon the extension and the popup connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if err := applog.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}
	defer applog.Close()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	set, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	presets, err := settings.LoadPresets(cfg.PresetsFile)
	if err != nil {
		return err
	}

	store := settings.NewSQLStore(db)
	col := colors.New()
	plan := planner.New(col, classify.DefaultSmartGroups, set)
	srv := server.New(cfg.Port)
	remote := host.NewRemote(srv, cfg.HostTimeout)
	org := organizer.New(remote, store, plan, suggest.New(storage.NewPatternStore(db)), history.New(cfg.HistoryDepth))

	d := daemon.New(daemon.Deps{
		Server:    srv,
		Host:      remote,
		Store:     store,
		Organizer: org,
		Planner:   plan,
		Colors:    col,
		Presets:   presets,
	}, daemon.Options{
		TickInterval:  cfg.TickInterval,
		SweepInterval: cfg.SweepInterval,
		RulesFile:     cfg.RulesFile,
	})

	applog.Info("serve.start", "port", cfg.Port, "db", cfg.DBPath, "rules", cfg.RulesFile)
	fmt.Fprintf(os.Stderr, "tabgruppen listening on 127.0.0.1:%d\n", cfg.Port)
	return d.Serve(ctx)
}

func newPopupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "popup",
		Short: "Show the pomodoro timer and tab actions of a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return tui.Run(ctx, fmt.Sprintf("ws://127.0.0.1:%d/popup", a.cfg.Port))
		},
	}
}
