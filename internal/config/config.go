// Package config resolves daemon configuration from defaults, an optional
// TOML file, TABGRUPPEN_* environment variables and bound command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys, as written in config.toml. The environment variable for a key is
// TABGRUPPEN_ followed by the upper-cased key.
const (
	KeyPort          = "port"
	KeyDB            = "db"
	KeyLogDir        = "log_dir"
	KeyRulesFile     = "rules_file"
	KeyPresetsFile   = "presets_file"
	KeyFirefoxDir    = "firefox_dir"
	KeyHistoryDepth  = "history_depth"
	KeyTickInterval  = "tick_interval"
	KeyHostTimeout   = "host_timeout"
	KeySweepInterval = "sweep_interval"
)

const (
	DefaultPort = 19192
	envPrefix   = "TABGRUPPEN"
)

// Config is the resolved daemon configuration.
type Config struct {
	Port          int
	DBPath        string
	LogDir        string
	RulesFile     string
	PresetsFile   string
	FirefoxDir    string
	HistoryDepth  int
	TickInterval  time.Duration
	HostTimeout   time.Duration
	SweepInterval time.Duration
}

// SetDefaults registers the built-in defaults on v, with paths under home.
func SetDefaults(v *viper.Viper, home string) {
	data := filepath.Join(home, ".local", "share", "tabgruppen")
	conf := filepath.Join(home, ".config", "tabgruppen")

	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyDB, filepath.Join(data, "tabgruppen.db"))
	v.SetDefault(KeyLogDir, data)
	v.SetDefault(KeyRulesFile, filepath.Join(conf, "rules.yaml"))
	v.SetDefault(KeyPresetsFile, filepath.Join(conf, "presets.toml"))
	v.SetDefault(KeyFirefoxDir, "")
	v.SetDefault(KeyHistoryDepth, 20)
	v.SetDefault(KeyTickInterval, time.Second)
	v.SetDefault(KeyHostTimeout, 5*time.Second)
	v.SetDefault(KeySweepInterval, time.Hour)
}

// Load resolves the configuration into v. When file is empty,
// ~/.config/tabgruppen/config.toml is read if it exists; an explicit file
// must exist.
func Load(v *viper.Viper, file string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	SetDefaults(v, home)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Join(home, ".config", "tabgruppen"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:          v.GetInt(KeyPort),
		DBPath:        expandHome(v.GetString(KeyDB), home),
		LogDir:        expandHome(v.GetString(KeyLogDir), home),
		RulesFile:     expandHome(v.GetString(KeyRulesFile), home),
		PresetsFile:   expandHome(v.GetString(KeyPresetsFile), home),
		FirefoxDir:    expandHome(v.GetString(KeyFirefoxDir), home),
		HistoryDepth:  v.GetInt(KeyHistoryDepth),
		TickInterval:  v.GetDuration(KeyTickInterval),
		HostTimeout:   v.GetDuration(KeyHostTimeout),
		SweepInterval: v.GetDuration(KeySweepInterval),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("invalid %s %d", KeyPort, c.Port)
	case c.DBPath == "":
		return fmt.Errorf("%s is empty", KeyDB)
	case c.TickInterval <= 0:
		return fmt.Errorf("%s must be positive", KeyTickInterval)
	case c.HostTimeout <= 0:
		return fmt.Errorf("%s must be positive", KeyHostTimeout)
	case c.SweepInterval <= 0:
		return fmt.Errorf("%s must be positive", KeySweepInterval)
	}
	return nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}
