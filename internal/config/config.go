// # internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	BackupDir   string  `toml:"backup_dir"`
	Exclude     Exclude `toml:"exclude"`
	Tools       Tools   `toml:"tools"`
	Scan        Scan    `toml:"scan"`
	History     History `toml:"history"`
	Metrics     Metrics `toml:"metrics"`
	Watch       Watch   `toml:"watch"`
	WriteIgnore bool    `toml:"write_gitignore"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Tools struct {
	Timeout time.Duration `toml:"timeout"`
}

type Scan struct {
	Workers  int     `toml:"workers"`
	ReadRate float64 `toml:"read_rate"` // file reads per second, 0 = unlimited
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Metrics struct {
	Listen string `toml:"listen"` // e.g. "127.0.0.1:9190", empty = disabled
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// reservedBackupDir is the default snapshot location inside the project root.
const reservedBackupDir = ".codezap/backups"

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.BackupDir == "" {
		cfg.BackupDir = reservedBackupDir
	}
	if cfg.Tools.Timeout == 0 {
		cfg.Tools.Timeout = 60 * time.Second
	}
	if cfg.Scan.Workers <= 0 {
		cfg.Scan.Workers = 4
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.History.Path == "" {
		cfg.History.Path = ".codezap/history.db"
	}
}

// ResolveBackupDir anchors a relative backup dir at the project root.
func (c *Config) ResolveBackupDir(projectRoot string) string {
	if filepath.IsAbs(c.BackupDir) {
		return c.BackupDir
	}
	return filepath.Join(projectRoot, c.BackupDir)
}

// ResolveHistoryPath anchors a relative history path at the project root.
func (c *Config) ResolveHistoryPath(projectRoot string) string {
	if filepath.IsAbs(c.History.Path) {
		return c.History.Path
	}
	return filepath.Join(projectRoot, c.History.Path)
}
