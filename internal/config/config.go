package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"listd/internal/catalog"
	"listd/internal/journal"
	"listd/internal/order"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr            = "127.0.0.1:8080"
	DefaultMaxBodyBytes    = 8 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxIDSize       = 10000
	DefaultMaxOrderCount   = 5000
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Ordering   OrderingConfig   `yaml:"ordering"`
	Page       PageConfig       `yaml:"page"`
	IDs        IDsConfig        `yaml:"ids"`
	OrderSlice OrderSliceConfig `yaml:"order_slice"`
	Journal    JournalConfig    `yaml:"journal"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type CatalogConfig struct {
	Size            int    `yaml:"size"`
	ValuePrefix     string `yaml:"value_prefix"`
	FilterCacheSize int    `yaml:"filter_cache_size"`
}

type OrderingConfig struct {
	// Strategy is "layered" (index overlay plus anchor replay), "index" or "anchor" (move log only).
	Strategy          string `yaml:"strategy"`
	MoveLogCapacity   int    `yaml:"move_log_capacity"`
	MaxScopes         int    `yaml:"max_scopes"`
	ResolverCacheSize int    `yaml:"resolver_cache_size"`
}

type PageConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	// MaxLimit bounds limit; 0 means unbounded.
	MaxLimit int `yaml:"max_limit"`
}

type IDsConfig struct {
	DefaultSize int `yaml:"default_size"`
	MaxSize     int `yaml:"max_size"`
}

type OrderSliceConfig struct {
	DefaultCount int `yaml:"default_count"`
	MaxCount     int `yaml:"max_count"`
}

type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path is the sqlite file; empty keeps the journal in memory.
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Catalog: CatalogConfig{
			Size:            catalog.DefaultSize,
			ValuePrefix:     catalog.DefaultValuePrefix,
			FilterCacheSize: catalog.DefaultFilterCacheSize,
		},
		Ordering: OrderingConfig{
			Strategy:          string(order.StrategyLayered),
			MoveLogCapacity:   order.DefaultMoveLogCapacity,
			MaxScopes:         order.DefaultMaxScopes,
			ResolverCacheSize: order.DefaultResolverCacheSize,
		},
		Page:       PageConfig{DefaultLimit: 20},
		IDs:        IDsConfig{DefaultSize: 5000, MaxSize: DefaultMaxIDSize},
		OrderSlice: OrderSliceConfig{DefaultCount: 1000, MaxCount: DefaultMaxOrderCount},
		Journal:    JournalConfig{Enabled: true, MaxEntries: journal.DefaultMaxEntries},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("LISTD_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".listd"), nil
}

// ResolvePath picks the config file: explicit path, then $LISTD_CONFIG, then
// <config dir>/config.yaml. The bool reports whether the file must exist.
func ResolvePath(explicit string) (string, bool, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		return p, true, nil
	}
	if p := strings.TrimSpace(os.Getenv("LISTD_CONFIG")); p != "" {
		return p, true, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", false, err
	}
	return filepath.Join(dir, "config.yaml"), false, nil
}

// Load returns defaults overlaid with the config file (if any) and LISTD_* environment variables.
func Load(explicitPath string) (Config, error) {
	cfg := Default()
	path, required, err := ResolvePath(explicitPath)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LISTD_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(k string, dst *string) {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(k string, dst *int) error {
		v, ok := lookup(k)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, k, err)
		}
		*dst = n
		return nil
	}

	str("LISTD_ADDR", &c.Server.Addr)
	str("LISTD_CATALOG_PREFIX", &c.Catalog.ValuePrefix)
	str("LISTD_ORDERING_STRATEGY", &c.Ordering.Strategy)
	str("LISTD_JOURNAL_PATH", &c.Journal.Path)
	str("LISTD_LOG_LEVEL", &c.Log.Level)
	str("LISTD_LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup("LISTD_CORS_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("LISTD_JOURNAL"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: LISTD_JOURNAL: %v", ErrInvalid, err)
		}
		c.Journal.Enabled = b
	}
	for k, dst := range map[string]*int{
		"LISTD_CATALOG_SIZE":      &c.Catalog.Size,
		"LISTD_MOVE_LOG_CAPACITY": &c.Ordering.MoveLogCapacity,
		"LISTD_MAX_SCOPES":        &c.Ordering.MaxScopes,
		"LISTD_PAGE_MAX_LIMIT":    &c.Page.MaxLimit,
	} {
		if err := num(k, dst); err != nil {
			return err
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		bad("server.addr is empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		bad("server.max_body_bytes must be > 0")
	}
	if c.Server.ShutdownTimeout < 0 {
		bad("server.shutdown_timeout must be >= 0")
	}
	if c.Catalog.Size < 0 {
		bad("catalog.size must be >= 0")
	}
	if c.Catalog.Size > catalog.MaxSize {
		bad("catalog.size must be <= %d", catalog.MaxSize)
	}
	if _, err := order.ParseStrategy(c.Ordering.Strategy); err != nil {
		bad("ordering.strategy: %v", err)
	}
	for name, v := range map[string]int{
		"ordering.move_log_capacity":   c.Ordering.MoveLogCapacity,
		"ordering.max_scopes":          c.Ordering.MaxScopes,
		"ordering.resolver_cache_size": c.Ordering.ResolverCacheSize,
		"catalog.filter_cache_size":    c.Catalog.FilterCacheSize,
		"page.default_limit":           c.Page.DefaultLimit,
		"page.max_limit":               c.Page.MaxLimit,
		"ids.default_size":             c.IDs.DefaultSize,
		"ids.max_size":                 c.IDs.MaxSize,
		"order_slice.default_count":    c.OrderSlice.DefaultCount,
		"order_slice.max_count":        c.OrderSlice.MaxCount,
		"journal.max_entries":          c.Journal.MaxEntries,
	} {
		if v < 0 {
			bad("%s must be >= 0", name)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		bad("log.format must be text|json, got %q", c.Log.Format)
	}
	return errors.Join(errs...)
}

// Save writes c as YAML to path, replacing the file atomically.
func Save(path string, c Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "config.yaml.*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, 0o644)
	return os.Rename(tmp, path)
}
