package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var defaultExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// Load reads path, merges includes, applies environment overrides and
// validates the result. Relative roots resolve against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for _, inc := range cfg.Includes {
		if err := mergeInclude(&cfg, ResolveRelative(base, inc)); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cfg.Root) == "" {
		cfg.Root = base
	} else {
		cfg.Root = ResolveRelative(base, cfg.Root)
	}

	LoadDotEnv(cfg.Root)
	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads root/rds.toml when present, otherwise defaults.
func LoadOrDefault(root, path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(root, DefaultFile)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			LoadDotEnv(root)
			cfg := &Config{Root: root}
			ApplyEnvOverrides(cfg)
			applyDefaults(cfg)
			normalize(cfg)
			return cfg, validate(cfg)
		}
	}
	return Load(path)
}

func mergeInclude(cfg *Config, path string) error {
	var inc Config
	if _, err := toml.DecodeFile(path, &inc); err != nil {
		return fmt.Errorf("include %s: %w", path, err)
	}
	cfg.Exclude.Dirs = append(cfg.Exclude.Dirs, inc.Exclude.Dirs...)
	cfg.Exclude.Files = append(cfg.Exclude.Files, inc.Exclude.Files...)
	cfg.CSS.Content = append(cfg.CSS.Content, inc.CSS.Content...)
	for alias, dir := range inc.Resolve.Aliases {
		if cfg.Resolve.Aliases == nil {
			cfg.Resolve.Aliases = make(map[string]string)
		}
		if _, ok := cfg.Resolve.Aliases[alias]; !ok {
			cfg.Resolve.Aliases[alias] = dir
		}
	}
	for name, body := range inc.CSS.Utilities {
		if cfg.CSS.Utilities == nil {
			cfg.CSS.Utilities = make(map[string]string)
		}
		if _, ok := cfg.CSS.Utilities[name]; !ok {
			cfg.CSS.Utilities[name] = body
		}
	}
	for section, values := range inc.CSS.Theme {
		if cfg.CSS.Theme == nil {
			cfg.CSS.Theme = make(map[string]map[string]string)
		}
		if cfg.CSS.Theme[section] == nil {
			cfg.CSS.Theme[section] = make(map[string]string)
		}
		for k, v := range values {
			if _, ok := cfg.CSS.Theme[section][k]; !ok {
				cfg.CSS.Theme[section][k] = v
			}
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Root) == "" {
		cfg.Root = "."
	}
	if strings.TrimSpace(cfg.Entry) == "" {
		cfg.Entry = "src/main.tsx"
	}
	if strings.TrimSpace(cfg.IndexHTML) == "" {
		cfg.IndexHTML = "index.html"
	}
	if strings.TrimSpace(cfg.Server.Host) == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if len(cfg.Resolve.Extensions) == 0 {
		cfg.Resolve.Extensions = append([]string(nil), defaultExtensions...)
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 50 * time.Millisecond
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "node_modules", "dist", ".rds"}
	}
	if strings.TrimSpace(cfg.CSS.DarkMode) == "" {
		cfg.CSS.DarkMode = "media"
	}
	if len(cfg.CSS.Content) == 0 {
		cfg.CSS.Content = []string{"index.html", "src/**.{ts,tsx,js,jsx,html}"}
	}
	if cfg.CSS.DevtoolsRate <= 0 {
		cfg.CSS.DevtoolsRate = 20
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = ".rds/cache.db"
	}
	if strings.TrimSpace(cfg.Deps.CDN) == "" && !cfg.Deps.Disabled {
		cfg.Deps.CDN = "https://esm.sh"
	}
	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = ".rds"
	}
	if strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		cfg.Tracing.ServiceName = "rds"
	}
}

func normalize(cfg *Config) {
	root, err := filepath.Abs(cfg.Root)
	if err == nil {
		cfg.Root = root
	}
	cfg.Root = filepath.Clean(cfg.Root)
	cfg.Entry = filepath.ToSlash(strings.TrimPrefix(strings.TrimSpace(cfg.Entry), "./"))
	cfg.IndexHTML = strings.TrimSpace(cfg.IndexHTML)
	cfg.CSS.DarkMode = strings.ToLower(strings.TrimSpace(cfg.CSS.DarkMode))
	cfg.Deps.CDN = strings.TrimRight(strings.TrimSpace(cfg.Deps.CDN), "/")
	if cfg.Deps.Disabled {
		cfg.Deps.CDN = ""
	}

	exts := make([]string, 0, len(cfg.Resolve.Extensions))
	seen := make(map[string]bool, len(cfg.Resolve.Extensions))
	for _, ext := range cfg.Resolve.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	cfg.Resolve.Extensions = exts

	if len(cfg.Resolve.Aliases) > 0 {
		aliases := make(map[string]string, len(cfg.Resolve.Aliases))
		for alias, dir := range cfg.Resolve.Aliases {
			aliases[strings.TrimSpace(alias)] = ResolveRelative(cfg.Root, dir)
		}
		cfg.Resolve.Aliases = aliases
	}

	sort.Strings(cfg.Exclude.Dirs)
	sort.Strings(cfg.Exclude.Files)
}
