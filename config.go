package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	UI struct {
		Color    string `mapstructure:"color"`
		MaxWidth int    `mapstructure:"max_width"`
	} `mapstructure:"ui"`
	Timing struct {
		UIRefreshMs int `mapstructure:"ui_refresh_ms"`
		DataFetchMs int `mapstructure:"data_fetch_ms"`
	} `mapstructure:"timing"`
	Agent struct {
		ID             string `mapstructure:"id"`
		ActivityWaitMs int    `mapstructure:"activity_wait_ms"`
	} `mapstructure:"agent"`
	Player struct {
		ID      string `mapstructure:"id"`
		Name    string `mapstructure:"name"`
		Enabled bool   `mapstructure:"enabled"`
	} `mapstructure:"player"`
	Bridge struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"bridge"`
	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`
	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
}

// SafeConfig wraps Config with thread-safe access
type SafeConfig struct {
	mu  sync.RWMutex
	cfg Config
}

// Get returns a copy of the current config (thread-safe read)
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cfg
}

// Set updates the config (thread-safe write)
func (sc *SafeConfig) Set(cfg Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
}

var config = &SafeConfig{}

// Config file changed notification
type configReloadMsg struct{}

var configChangeChan = make(chan struct{}, 1)

// Watch for config file changes
func watchConfigCmd() tea.Cmd {
	return func() tea.Msg {
		<-configChangeChan
		return configReloadMsg{}
	}
}

const (
	defaultColor          = "2"
	defaultMaxWidth       = 45
	defaultUIRefreshMs    = 100
	defaultDataFetchMs    = 1000
	defaultAgentID        = "extmedia"
	defaultActivityWaitMs = 2000
	defaultPlayerID       = "desktop"
	defaultBridgeAddr     = "127.0.0.1:8787"
	defaultLogLevel       = "info"
)

// configError describes one invalid configuration field
type configError struct {
	field   string
	message string
}

func (e configError) Error() string {
	return e.field + ": " + e.message
}

// xdgDir returns $<env>/extmedia, falling back to ~/<fallback>/extmedia
func xdgDir(env, fallback string) string {
	base := os.Getenv(env)
	if base == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(homeDir, fallback)
	}
	return filepath.Join(base, "extmedia")
}

func initConfig() {
	dataDir := xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	stateDir := xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))

	// Set defaults
	viper.SetDefault("ui.color", defaultColor)
	viper.SetDefault("ui.max_width", defaultMaxWidth)
	viper.SetDefault("timing.ui_refresh_ms", defaultUIRefreshMs)
	viper.SetDefault("timing.data_fetch_ms", defaultDataFetchMs)
	viper.SetDefault("agent.id", defaultAgentID)
	viper.SetDefault("agent.activity_wait_ms", defaultActivityWaitMs)
	viper.SetDefault("player.id", defaultPlayerID)
	viper.SetDefault("player.name", "")
	viper.SetDefault("player.enabled", true)
	viper.SetDefault("bridge.enabled", false)
	viper.SetDefault("bridge.addr", defaultBridgeAddr)
	viper.SetDefault("store.path", filepath.Join(dataDir, "players.db"))
	viper.SetDefault("log.level", defaultLogLevel)
	viper.SetDefault("log.file", filepath.Join(stateDir, "extmedia.log"))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if configDir := xdgDir("XDG_CONFIG_HOME", ".config"); configDir != "" {
		viper.AddConfigPath(configDir)
	}

	// Environment variable support with EXTMEDIA_ prefix
	viper.SetEnvPrefix("EXTMEDIA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore error if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	// Command-line flags take precedence when set
	if colorFlag != "" {
		viper.Set("ui.color", colorFlag)
	}
	if playerFlag != "" {
		viper.Set("player.name", playerFlag)
	}
	if bridgeFlag != "" {
		viper.Set("bridge.enabled", true)
		viper.Set("bridge.addr", bridgeFlag)
	}
	if debugFlag {
		viper.Set("log.level", "debug")
	}

	cfg, errs := loadConfig()
	printConfigWarnings(errs)
	config.Set(cfg)

	// Watch for config file changes and live reload
	viper.OnConfigChange(func(e fsnotify.Event) {
		newCfg, errs := loadConfig()
		for _, err := range errs {
			log.Warnw("config", "file", e.Name, "err", err)
		}
		config.Set(newCfg)
		applyLogLevel(newCfg.Log.Level)
		log.Infow("config reloaded", "file", e.Name)

		select {
		case configChangeChan <- struct{}{}:
		default:
			// Channel full, skip notification
		}
	})
	viper.WatchConfig()
}

// loadConfig unmarshals viper's view and replaces invalid fields with defaults
func loadConfig() (Config, []error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, []error{fmt.Errorf("parse config: %w", err)}
	}
	errs := validateConfig(&cfg)
	applyDefaultsForInvalidFields(&cfg, errs)
	return cfg, errs
}

// isValidColor accepts ANSI codes 0-255 and #RGB / #RRGGBB hex colors
func isValidColor(color string) bool {
	if color == "" {
		return false
	}
	if color[0] == '#' {
		hex := color[1:]
		if len(hex) != 3 && len(hex) != 6 {
			return false
		}
		for _, c := range hex {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
				return false
			}
		}
		return true
	}
	if len(color) > 3 {
		return false
	}
	for _, c := range color {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(color)
	return err == nil && n <= 255
}

// validateConfig reports every invalid field of cfg
func validateConfig(cfg *Config) []error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, configError{field: field, message: fmt.Sprintf(format, args...)})
	}

	if !isValidColor(cfg.UI.Color) {
		invalid("ui.color", "invalid color format '%s'", cfg.UI.Color)
	}
	if cfg.UI.MaxWidth < 20 {
		invalid("ui.max_width", "must be at least 20 (got %d)", cfg.UI.MaxWidth)
	}
	if cfg.Timing.UIRefreshMs < 10 || cfg.Timing.UIRefreshMs > 1000 {
		invalid("timing.ui_refresh_ms", "must be between 10 and 1000 (got %d)", cfg.Timing.UIRefreshMs)
	}
	if cfg.Timing.DataFetchMs < 100 || cfg.Timing.DataFetchMs > 60000 {
		invalid("timing.data_fetch_ms", "must be between 100 and 60000 (got %d)", cfg.Timing.DataFetchMs)
	}
	if strings.TrimSpace(cfg.Agent.ID) == "" {
		invalid("agent.id", "must not be empty")
	}
	if cfg.Agent.ActivityWaitMs < 0 || cfg.Agent.ActivityWaitMs > 30000 {
		invalid("agent.activity_wait_ms", "must be between 0 and 30000 (got %d)", cfg.Agent.ActivityWaitMs)
	}
	if cfg.Player.Enabled && strings.TrimSpace(cfg.Player.ID) == "" {
		invalid("player.id", "must not be empty when the player is enabled")
	}
	if cfg.Bridge.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Bridge.Addr); err != nil {
			invalid("bridge.addr", "invalid address '%s': %v", cfg.Bridge.Addr, err)
		}
	}
	if _, err := logging.LevelFromString(cfg.Log.Level); err != nil {
		invalid("log.level", "unknown level '%s'", cfg.Log.Level)
	}
	return errs
}

var fieldDefaults = map[string]func(cfg *Config){
	"ui.color":               func(cfg *Config) { cfg.UI.Color = defaultColor },
	"ui.max_width":           func(cfg *Config) { cfg.UI.MaxWidth = defaultMaxWidth },
	"timing.ui_refresh_ms":   func(cfg *Config) { cfg.Timing.UIRefreshMs = defaultUIRefreshMs },
	"timing.data_fetch_ms":   func(cfg *Config) { cfg.Timing.DataFetchMs = defaultDataFetchMs },
	"agent.id":               func(cfg *Config) { cfg.Agent.ID = defaultAgentID },
	"agent.activity_wait_ms": func(cfg *Config) { cfg.Agent.ActivityWaitMs = defaultActivityWaitMs },
	"player.id":              func(cfg *Config) { cfg.Player.ID = defaultPlayerID },
	"bridge.addr":            func(cfg *Config) { cfg.Bridge.Addr = defaultBridgeAddr },
	"log.level":              func(cfg *Config) { cfg.Log.Level = defaultLogLevel },
}

// applyDefaultsForInvalidFields resets every field named in errs to its default
func applyDefaultsForInvalidFields(cfg *Config, errs []error) {
	for _, err := range errs {
		ce, ok := err.(configError)
		if !ok {
			continue
		}
		if reset, ok := fieldDefaults[ce.field]; ok {
			reset(cfg)
		}
	}
}

// printConfigWarnings writes validation problems to stderr before the TUI starts
func printConfigWarnings(errs []error) {
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "Warning: %v (using default)\n", err)
	}
}
