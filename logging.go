package main

import (
	"fmt"
	"os"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("extmedia")

// setupLogging sends every subsystem logger to the log file. The terminal
// belongs to the TUI, so stderr is only used when no file is configured.
func setupLogging(cfg Config) error {
	lvl, err := logging.LevelFromString(cfg.Log.Level)
	if err != nil {
		lvl = logging.LevelInfo
	}

	lc := logging.Config{
		Format: logging.PlaintextOutput,
		Level:  lvl,
	}
	if cfg.Log.File == "" {
		lc.Stderr = true
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		lc.File = cfg.Log.File
	}
	logging.SetupLogging(lc)
	return nil
}

// applyLogLevel re-applies the level after a config reload
func applyLogLevel(level string) {
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		log.Warnw("unknown log level", "level", level)
		return
	}
	logging.SetAllLoggers(lvl)
}
