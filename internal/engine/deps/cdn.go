// Package deps locates bare imports ("react", "@scope/pkg/sub") on an ES
// module CDN, pinned to the versions the project manifest declares.
package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"rds/internal/core/errors"
	"rds/internal/engine/resolver/drivers"
)

const ManifestFile = "package.json"

type manifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// CDN builds module URLs below base. Versions are read lazily from
// root/package.json and kept until Reload.
type CDN struct {
	base  string
	root  string
	specs *drivers.JavaScriptSpecifiers

	mu       sync.RWMutex
	versions map[string]string
	loaded   bool
}

func NewCDN(base, root string) *CDN {
	return &CDN{
		base:  strings.TrimRight(base, "/"),
		root:  root,
		specs: drivers.NewJavaScriptSpecifiers(),
	}
}

// Locate returns the CDN URL of specifier.
func (c *CDN) Locate(_ context.Context, specifier string) (string, error) {
	spec := c.specs.Clean(specifier)
	pkg := c.specs.PackageName(spec)
	if pkg == "" || c.specs.IsRelative(spec) {
		return "", errors.Newf(errors.CodeNotFound, "%q is not a package specifier", specifier).
			WithContext(errors.CtxSpecifier, specifier)
	}
	subpath := strings.TrimPrefix(spec, pkg)

	version := c.version(pkg)
	target := c.base + "/" + pkg
	if version != "" {
		target += "@" + version
	}
	return target + subpath + "?dev", nil
}

func (c *CDN) version(pkg string) string {
	c.mu.RLock()
	loaded := c.loaded
	v := c.versions[pkg]
	c.mu.RUnlock()
	if loaded {
		return v
	}
	if err := c.Reload(); err != nil {
		slog.Debug("package manifest unavailable", "root", c.root, "error", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[pkg]
}

// Reload re-reads the manifest. A missing manifest leaves every package
// unpinned.
func (c *CDN) Reload() error {
	versions := make(map[string]string)
	defer func() {
		c.mu.Lock()
		c.versions = versions
		c.loaded = true
		c.mu.Unlock()
	}()

	path := filepath.Join(c.root, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, deps := range []map[string]string{m.DevDependencies, m.Dependencies} {
		for name, spec := range deps {
			if v, ok := pinnable(spec); ok {
				versions[name] = v
			}
		}
	}
	return nil
}

// pinnable filters out workspace, file, git and url dependencies, which a
// CDN cannot serve by version.
func pinnable(spec string) (string, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "*" || spec == "latest" {
		return "", false
	}
	if strings.Contains(spec, ":") || strings.Contains(spec, "/") {
		return "", false
	}
	return spec, true
}
