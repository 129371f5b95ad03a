package config

import (
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	Root      string
	Entry     string
	IndexHTML string
	StateDir  string
	CachePath string
}

func ResolvePaths(cfg *Config) ResolvedPaths {
	root := filepath.Clean(cfg.Root)
	stateDir := ResolveRelative(root, cfg.Paths.StateDir)
	return ResolvedPaths{
		Root:      root,
		Entry:     ResolveRelative(root, cfg.Entry),
		IndexHTML: ResolveRelative(root, cfg.IndexHTML),
		StateDir:  stateDir,
		CachePath: ResolveRelative(root, cfg.Cache.Path),
	}
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
