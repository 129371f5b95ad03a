package config

import (
	"time"
)

const DefaultFile = "rds.toml"

type Config struct {
	Root      string   `toml:"root"`
	Entry     string   `toml:"entry"`
	IndexHTML string   `toml:"index_html"`
	Server    Server   `toml:"server"`
	Resolve   Resolve  `toml:"resolve"`
	Watch     Watch    `toml:"watch"`
	CSS       CSS      `toml:"css"`
	Cache     Cache    `toml:"cache"`
	Deps      Deps     `toml:"deps"`
	Tracing   Tracing  `toml:"tracing"`
	Exclude   Exclude  `toml:"exclude"`
	Paths     Paths    `toml:"paths"`
	Includes  []string `toml:"includes"`
}

type Server struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Open    bool   `toml:"open"`
	Metrics *bool  `toml:"metrics"`
}

type Resolve struct {
	Extensions []string          `toml:"extensions"`
	Aliases    map[string]string `toml:"aliases"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type CSS struct {
	DarkMode     string   `toml:"dark_mode"`
	Content      []string `toml:"content"`
	Devtools     bool     `toml:"devtools"`
	DevtoolsRate float64  `toml:"devtools_rate"`
	// Theme extends the built-in tables: section name to key/value.
	Theme map[string]map[string]string `toml:"theme"`
	// Utilities adds project classes after the built-in rules, class name
	// to declarations ("padding: 1rem; color: red").
	Utilities map[string]string `toml:"utilities"`
}

type Cache struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

// Deps locates bare imports. An empty CDN leaves them unserved.
type Deps struct {
	CDN      string `toml:"cdn"`
	Disabled bool   `toml:"disabled"`
}

type Tracing struct {
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
}

type Paths struct {
	StateDir string `toml:"state_dir"`
}

func (c *Config) MetricsEnabled() bool {
	return c.Server.Metrics == nil || *c.Server.Metrics
}

func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// Default returns a configuration for a project without rds.toml.
func Default(root string) *Config {
	cfg := &Config{Root: root}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}
