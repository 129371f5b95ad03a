package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	coreapp "rds/internal/core/app"
	"rds/internal/core/config"
	"rds/internal/engine/transform"
	"rds/internal/shared/observability"
	"rds/internal/ui/report"
	"rds/internal/ui/server"
)

const shutdownTimeout = 5 * time.Second

func runDev(ctx context.Context, global globalOptions, opts devOptions, rootDir string) error {
	cleanupLogs := configureLogging(opts.ui, global.verbose)
	defer cleanupLogs()

	cfg, cfgPath, err := loadConfig(rootDir, global.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyDevOptions(cfg, opts)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	app, err := coreapp.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("failed to close app", "error", err)
		}
	}()

	hub := server.NewHub()
	app.AttachHub(hub)

	if err := app.InitialScan(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	if err := app.StartWatcher(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	if cfgPath != "" {
		cw := config.NewWatcher(cfgPath, func(next *config.Config) {
			applyDevOptions(next, opts)
			if err := app.ApplyConfig(next); err != nil {
				slog.Error("failed to apply configuration", "path", cfgPath, "error", err)
			}
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config watcher unavailable", "path", cfgPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	srv := server.New(ctx, app, hub, server.Options{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Metrics:      cfg.MetricsEnabled(),
		DevtoolsRate: cfg.CSS.DevtoolsRate,
	})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	url := "http://" + srv.Addr()
	if cfg.Server.Open {
		go openURL(url)
	}

	if opts.ui {
		return runUI(ctx, app, url)
	}

	fmt.Printf("\n  rds dev server running at %s\n  root: %s\n\n", url, app.Paths.Root)
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func applyDevOptions(cfg *config.Config, opts devOptions) {
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if strings.TrimSpace(opts.host) != "" {
		cfg.Server.Host = opts.host
	}
	if opts.open {
		cfg.Server.Open = true
	}
}

func runCSS(global globalOptions, rootDir string, files []string, out io.Writer) error {
	cleanupLogs := configureLogging(false, global.verbose)
	defer cleanupLogs()

	cfg, _, err := loadConfig(rootDir, global.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	disabled := false
	cfg.Cache.Enabled = &disabled

	app, err := coreapp.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		path, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		app.Generator.ScanFile(path, string(content))
	}
	_, err = io.WriteString(out, app.Generator.Generate())
	return err
}

func runGraph(ctx context.Context, global globalOptions, rootDir, file, format string, out io.Writer) error {
	cleanupLogs := configureLogging(false, global.verbose)
	defer cleanupLogs()

	cfg, _, err := loadConfig(rootDir, global.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := coreapp.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.InitialScan(ctx); err != nil {
		return err
	}
	target, err := filepath.Abs(locate(app.Paths.Root, file))
	if err != nil {
		return err
	}
	if !app.Graph.Has(target) {
		if _, err := app.Pipeline.Render(ctx, target, transform.FormModule); err != nil {
			return err
		}
	}

	rendered, err := report.RenderGraph(app.Graph.Nodes(), target, report.Format(format), relativeTo(app.Paths.Root))
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, rendered); err != nil {
		return err
	}
	if report.Format(format) != report.FormatTree {
		return nil
	}
	if entry := app.Graph.Entry(); entry != "" && entry != target {
		if chain, ok := app.Graph.ImportChain(entry, target); ok {
			label := relativeTo(app.Paths.Root)
			parts := make([]string, len(chain))
			for i, id := range chain {
				parts[i] = label(id)
			}
			_, err = fmt.Fprintf(out, "\nReached from entry: %s\n", strings.Join(parts, " -> "))
		}
	}
	return err
}

// locate accepts paths relative to the working directory or, failing that,
// to the project root.
func locate(root, file string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	if _, err := os.Stat(file); err == nil {
		return file
	}
	return filepath.Join(root, file)
}

func relativeTo(root string) func(string) string {
	return func(id string) string {
		if !filepath.IsAbs(id) {
			return id
		}
		rel, err := filepath.Rel(root, id)
		if err != nil || strings.HasPrefix(rel, "..") {
			return id
		}
		return filepath.ToSlash(rel)
	}
}

// loadConfig resolves the project root and reads its configuration. The
// returned path is empty when no file was read.
func loadConfig(rootDir, path string) (*config.Config, string, error) {
	if strings.TrimSpace(rootDir) == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		rootDir = cwd
	}
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, "", err
	}

	if strings.TrimSpace(path) == "" {
		candidate := filepath.Join(root, config.DefaultFile)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	cfg, err := config.LoadOrDefault(root, path)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return cfg, "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, abs, nil
}

func openURL(url string) {
	var cmd *exec.Cmd
	switch {
	case commandExists("xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case commandExists("open"):
		cmd = exec.Command("open", url)
	case commandExists("rundll32"):
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("failed to open browser", "url", url, "error", err)
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	var output io.Writer = os.Stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		f, err := openLogFile(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			output = io.Discard
		} else {
			output = f
			closeFn = func() { _ = f.Close() }
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", logPath, err)
	}
	if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
		return nil, errors.New("refusing to write logs to symlink path " + logPath)
	}
	return os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "rds", "rds.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "rds", "rds.log")
	}

	return "rds.log"
}
