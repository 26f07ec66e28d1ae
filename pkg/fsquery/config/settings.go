package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Colour modes for -print output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrInvalidSettings is wrapped by every Validate failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is everything the fsquery command reads from its settings file.
//
//	db: ~/.cache/fsquery/index.db
//	workers: 8
//	budget: 0
//	fallback_bridge: -and
//	color: auto
//	log_level: warn
//	scan:
//	  skip_dirs: [.git, node_modules]
//	  follow_symlinks: false
//	  max_depth: -1
//	  timeout: 0s
type Settings struct {
	DB             string
	Workers        int
	Budget         int // results per Start; 0 means unlimited
	FallbackBridge string
	Color          string
	LogLevel       string
	SkipDirs       []string
	FollowSymlinks bool
	MaxDepth       int
	ScanTimeout    time.Duration // 0 means no limit
}

// DefaultDB is the snapshot database path used when none is configured.
func DefaultDB() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "fsquery", "index.db")
	}
	return "fsquery.db"
}

// Defaults returns the settings used when no file is given.
func Defaults() Settings {
	return Settings{
		DB:             DefaultDB(),
		Workers:        runtime.GOMAXPROCS(0),
		FallbackBridge: "-and",
		Color:          ColorAuto,
		LogLevel:       "warn",
		SkipDirs:       []string{".git", ".hg", ".svn"},
		MaxDepth:       -1,
	}
}

// FromConfig reads Settings from cfg, falling back to Defaults per key.
func FromConfig(cfg Config) Settings {
	d := Defaults()
	scan := cfg.Section("scan")
	return Settings{
		DB:             expandHome(cfg.String("db", d.DB)),
		Workers:        cfg.Int("workers", d.Workers),
		Budget:         cfg.Int("budget", d.Budget),
		FallbackBridge: cfg.String("fallback_bridge", d.FallbackBridge),
		Color:          strings.ToLower(cfg.String("color", d.Color)),
		LogLevel:       cfg.String("log_level", d.LogLevel),
		SkipDirs:       scan.StringSlice("skip_dirs", d.SkipDirs),
		FollowSymlinks: scan.Bool("follow_symlinks", d.FollowSymlinks),
		MaxDepth:       scan.Int("max_depth", d.MaxDepth),
		ScanTimeout:    scan.Duration("timeout", d.ScanTimeout),
	}
}

// Load reads Settings from path, or returns Defaults when path is empty.
func Load(path string) (Settings, error) {
	if path == "" {
		return Defaults(), nil
	}
	cfg, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	s := FromConfig(cfg)
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks ranges and enumerations.
func (s Settings) Validate() error {
	var errs []error
	if s.DB == "" {
		errs = append(errs, errors.New("db must not be empty"))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", s.Workers))
	}
	if s.Budget < 0 {
		errs = append(errs, fmt.Errorf("budget must not be negative, got %d", s.Budget))
	}
	if s.ScanTimeout < 0 {
		errs = append(errs, fmt.Errorf("scan.timeout must not be negative, got %s", s.ScanTimeout))
	}
	switch s.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("color must be auto, always or never, got %q", s.Color))
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
