package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/lotas/tabgruppen/internal/analyzer"
	"github.com/lotas/tabgruppen/internal/classify"
	"github.com/lotas/tabgruppen/internal/colors"
	"github.com/lotas/tabgruppen/internal/export"
	"github.com/lotas/tabgruppen/internal/firefox"
	"github.com/lotas/tabgruppen/internal/planner"
	"github.com/lotas/tabgruppen/internal/rules"
	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/storage"
	"github.com/lotas/tabgruppen/internal/suggest"
	"github.com/lotas/tabgruppen/internal/types"
)

// session loads the session of the named Firefox profile, or the default one.
func (a *app) session(profile string) (*types.SessionData, error) {
	profiles, err := firefox.DiscoverProfiles(a.cfg.FirefoxDir)
	if err != nil {
		return nil, fmt.Errorf("discover profiles: %w", err)
	}
	p, err := firefox.SelectProfile(profiles, profile)
	if err != nil {
		return nil, err
	}
	return firefox.LoadProfile(p)
}

// loadSettings reads the stored settings. Offline commands fall back to the
// defaults when the database cannot be opened.
func (a *app) loadSettings(ctx context.Context) settings.Settings {
	db, err := a.openDB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using default settings\n", err)
		return settings.Defaults()
	}
	defer db.Close()
	s, err := settings.NewSQLStore(db).Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using default settings\n", err)
		return settings.Defaults()
	}
	return s
}

func (a *app) suggestions(ctx context.Context, tabs []*types.Tab) ([]types.Suggestion, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return suggest.New(storage.NewPatternStore(db)).Suggest(ctx, tabs)
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		profile string
		window  int
		asJSON  bool
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how a Firefox window would be grouped, without touching the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			data, err := a.session(profile)
			if err != nil {
				return err
			}
			set, err := rules.Load(a.cfg.RulesFile)
			if err != nil {
				return err
			}

			now := time.Now()
			s := a.loadSettings(ctx)
			tabs := data.TabsInWindow(window)
			if len(tabs) == 0 {
				return fmt.Errorf("window %d has no tabs", window)
			}
			plans := planner.New(colors.New(), classify.DefaultSmartGroups, set).Plan(tabs, s, now)
			sugg, err := a.suggestions(ctx, tabs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: suggestions unavailable: %v\n", err)
			}

			report := export.Report{
				Source:      fmt.Sprintf("%s, window %d", data.Profile.Name, window),
				Tabs:        tabs,
				Plans:       plans,
				Stats:       analyzer.ComputeStats(tabs, data.Groups, time.Duration(s.SuspendAfterHours)*time.Hour, now),
				Suggestions: sugg,
				Generated:   now,
			}

			var output string
			if asJSON {
				output, err = export.JSON(report)
				if err != nil {
					return fmt.Errorf("generate JSON: %w", err)
				}
			} else {
				output = export.Markdown(report)
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(output), 0644); err != nil {
					return fmt.Errorf("write %s: %w", outFile, err)
				}
				return nil
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), output)
			return err
		},
	}
	cmd.Flags().StringVar(&profile, "profile", os.Getenv("TABGRUPPEN_PROFILE"), "Firefox profile name (default: the default profile)")
	cmd.Flags().IntVar(&window, "window", 1, "window number in the session, from 1")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON instead of markdown")
	cmd.Flags().StringVar(&outFile, "out", "", "output file (default: stdout)")
	return cmd
}

func newSuggestCmd(a *app) *cobra.Command {
	var (
		profile string
		window  int
	)
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank remembered domain patterns against a Firefox window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.session(profile)
			if err != nil {
				return err
			}
			sugg, err := a.suggestions(cmd.Context(), data.TabsInWindow(window))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sugg) == 0 {
				fmt.Fprintln(out, "No suggestions yet.")
				return nil
			}
			for _, s := range sugg {
				fmt.Fprintf(out, "%.1f  %s\n", s.Confidence, strings.Join(s.Domains, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", os.Getenv("TABGRUPPEN_PROFILE"), "Firefox profile name")
	cmd.Flags().IntVar(&window, "window", 1, "window number in the session, from 1")
	return cmd
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change the stored settings",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the stored settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *settings.SQLStore) error {
				return printSettings(ctx, cmd, store)
			})
		},
	}

	set := &cobra.Command{
		Use:   "set key=value... | set '{json}'",
		Short: "Change stored settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parsePatch(args)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *settings.SQLStore) error {
				if err := store.Save(ctx, patch); err != nil {
					return err
				}
				return printSettings(ctx, cmd, store)
			})
		},
	}

	preset := &cobra.Command{
		Use:   "preset [name]",
		Short: "Apply a named preset, or list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := settings.LoadPresets(a.cfg.PresetsFile)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				for _, name := range presets.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			patch, ok := presets[args[0]]
			if !ok {
				return fmt.Errorf("unknown preset %q (have: %s)", args[0], strings.Join(presets.Names(), ", "))
			}
			return a.withStore(cmd, func(ctx context.Context, store *settings.SQLStore) error {
				if err := store.Save(ctx, patch); err != nil {
					return err
				}
				return printSettings(ctx, cmd, store)
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *settings.SQLStore) error {
				if err := store.Reset(ctx); err != nil {
					return err
				}
				return printSettings(ctx, cmd, store)
			})
		},
	}

	cmd.AddCommand(get, set, preset, reset)
	return cmd
}

func (a *app) withStore(cmd *cobra.Command, fn func(context.Context, *settings.SQLStore) error) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cmd.Context(), settings.NewSQLStore(db))
}

func printSettings(ctx context.Context, cmd *cobra.Command, store settings.Store) error {
	s, err := store.Load(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// parsePatch reads a settings patch from either one JSON object or
// key=value pairs using the settings' JSON keys.
func parsePatch(args []string) (settings.Patch, error) {
	var patch settings.Patch
	if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "{") {
		if err := json.Unmarshal([]byte(args[0]), &patch); err != nil {
			return patch, fmt.Errorf("parse settings JSON: %w", err)
		}
		return patch, nil
	}

	fields := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return patch, fmt.Errorf("expected key=value, got %q", arg)
		}
		fields[key] = parseValue(value)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return patch, err
	}
	if err := json.Unmarshal(data, &patch); err != nil {
		return patch, fmt.Errorf("parse settings: %w", err)
	}
	return patch, nil
}

func parseValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func newProfilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List Firefox profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := firefox.DiscoverProfiles(a.cfg.FirefoxDir)
			if err != nil {
				return fmt.Errorf("discover profiles: %w", err)
			}
			if len(profiles) == 0 {
				return errors.New("no Firefox profiles found")
			}
			sort.SliceStable(profiles, func(i, j int) bool { return profiles[i].IsDefault && !profiles[j].IsDefault })
			for _, p := range profiles {
				suffix := ""
				if p.IsDefault {
					suffix = " [default]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)%s\n", p.Name, p.Path, suffix)
			}
			return nil
		},
	}
}
