package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

func validate(cfg *Config) error {
	if err := validateServer(cfg); err != nil {
		return err
	}
	if err := validateResolve(cfg); err != nil {
		return err
	}
	if err := validateCSS(cfg); err != nil {
		return err
	}
	if err := validateGlobs("exclude.files", cfg.Exclude.Files); err != nil {
		return err
	}
	return nil
}

func validateServer(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}
	if filepath.IsAbs(cfg.Entry) {
		return fmt.Errorf("entry must be relative to root, got %q", cfg.Entry)
	}
	return nil
}

func validateResolve(cfg *Config) error {
	if len(cfg.Resolve.Extensions) == 0 {
		return fmt.Errorf("resolve.extensions must not be empty")
	}
	for alias := range cfg.Resolve.Aliases {
		if alias == "" {
			return fmt.Errorf("resolve.aliases contains an empty alias")
		}
		if strings.HasPrefix(alias, ".") || strings.HasPrefix(alias, "/") {
			return fmt.Errorf("resolve.aliases key %q must not start with '.' or '/'", alias)
		}
	}
	return nil
}

func validateCSS(cfg *Config) error {
	switch cfg.CSS.DarkMode {
	case "media", "class":
	default:
		return fmt.Errorf("css.dark_mode must be one of: media, class")
	}
	if err := validateGlobs("css.content", cfg.CSS.Content); err != nil {
		return err
	}
	for name, body := range cfg.CSS.Utilities {
		if name == "" || strings.ContainsAny(name, " \t\n:") {
			return fmt.Errorf("css.utilities contains an invalid class name %q", name)
		}
		decls := 0
		for _, part := range strings.Split(body, ";") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			prop, value, ok := strings.Cut(part, ":")
			if !ok || strings.TrimSpace(prop) == "" || strings.TrimSpace(value) == "" {
				return fmt.Errorf("css.utilities.%s: malformed declaration %q", name, strings.TrimSpace(part))
			}
			decls++
		}
		if decls == 0 {
			return fmt.Errorf("css.utilities.%s must declare at least one property", name)
		}
	}
	for section, values := range cfg.CSS.Theme {
		for key, value := range values {
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("css.theme.%s.%s must not be empty", section, key)
			}
		}
	}
	return nil
}

func validateGlobs(field string, patterns []string) error {
	for _, p := range patterns {
		if _, err := glob.Compile(filepath.ToSlash(p), '/'); err != nil {
			return fmt.Errorf("%s: invalid glob %q: %w", field, p, err)
		}
	}
	return nil
}
