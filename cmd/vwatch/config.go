package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/socketrpc"
)

const (
	defaultBindHost         = "127.0.0.1"
	defaultAPIPort          = 3000
	defaultQueryTimeout     = 30 * time.Second
	defaultHistoryRetention = 30 // days, 0 = disabled
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	ProjectURLs       []string      `mapstructure:"project-urls"`
	APIBaseURL        string        `mapstructure:"api-base-url"`
	APITimeout        time.Duration `mapstructure:"api-timeout"`
	MockData          bool          `mapstructure:"mock-data"`
	VercelToken       string        `mapstructure:"vercel-token"`
	StoragePath       string        `mapstructure:"storage-path"`
	RefreshInterval   int           `mapstructure:"refresh-interval"`
	Theme             string        `mapstructure:"theme"`
	FilterByTimeRange bool          `mapstructure:"filter-by-time-range"`
	APIEnabled        bool          `mapstructure:"api-enabled"`
	APIPort           int           `mapstructure:"api-port"`
	APIAddr           string        `mapstructure:"api-addr"`
	SocketPath        string        `mapstructure:"socket-path"`
	HistoryEnabled    bool          `mapstructure:"history-enabled"`
	DBPath            string        `mapstructure:"db-path"`
	HistoryRetention  int           `mapstructure:"history-retention"`
	QueryTimeout      time.Duration `mapstructure:"query-timeout"`
	Seed              uint64        `mapstructure:"seed"`
	ConfigPath        string        `mapstructure:"-"` // not from config file
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("VWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("project-urls", []string{})
	v.SetDefault("api-base-url", model.DefaultAPIBaseURL)
	v.SetDefault("api-timeout", model.DefaultAPITimeout)
	v.SetDefault("mock-data", false)
	v.SetDefault("vercel-token", "")
	v.SetDefault("storage-path", filepath.Join(home, ".local", "share", "vwatch", "storage.yml"))
	v.SetDefault("refresh-interval", model.DefaultRefreshInterval)
	v.SetDefault("theme", string(model.DefaultTheme))
	v.SetDefault("filter-by-time-range", false)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("history-enabled", true)
	v.SetDefault("db-path", filepath.Join(home, ".local", "share", "vwatch", "history.duckdb"))
	v.SetDefault("history-retention", defaultHistoryRetention)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("seed", 0)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "vwatch", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	cfg.StoragePath = expandHome(home, cfg.StoragePath)
	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.SocketPath = expandHome(home, cfg.SocketPath)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

func (cfg appConfig) validate() error {
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("invalid refresh-interval: %d (seconds, must be positive)", cfg.RefreshInterval)
	}
	if cfg.APITimeout <= 0 {
		return fmt.Errorf("invalid api-timeout: %s", cfg.APITimeout)
	}
	if !slices.Contains([]model.Theme{model.ThemeDark, model.ThemeLight}, model.Theme(cfg.Theme)) {
		return fmt.Errorf("invalid theme: %q (want dark or light)", cfg.Theme)
	}
	if cfg.HistoryRetention < 0 {
		return fmt.Errorf("invalid history-retention: %d", cfg.HistoryRetention)
	}
	return nil
}

// initialSettings seeds the store's preferences from config.
func (cfg appConfig) initialSettings() model.UserSettings {
	s := model.DefaultSettings()
	s.RefreshInterval = cfg.RefreshInterval
	s.Theme = model.Theme(cfg.Theme)
	return s
}

// Expand ~ in configured paths.
func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
