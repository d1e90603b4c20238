// Command verdant evaluates a vegetation catalog, scatters it over a
// procedurally built ground scene and writes STL meshes plus a placement
// manifest.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/chazu/verdant/pkg/config"
	"github.com/chazu/verdant/pkg/logging"
)

// debounce collapses the burst of events editors emit on save.
const debounce = 200 * time.Millisecond

type flags struct {
	config  string
	catalog string
	out     string
	seed    uint64
	size    float64
	rocks   int
	watch   bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("verdant", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "", "path to a YAML or TOML configuration file")
	fs.StringVar(&f.catalog, "catalog", "", "path to the .veg catalog to evaluate")
	fs.StringVar(&f.out, "out", "", "output directory (overrides config)")
	fs.Uint64Var(&f.seed, "seed", 0, "random seed (overrides config when non-zero)")
	fs.Float64Var(&f.size, "size", 20, "ground extent along x and z")
	fs.IntVar(&f.rocks, "rocks", 4, "number of rocks on the ground")
	fs.BoolVar(&f.watch, "watch", false, "regenerate when the catalog or config changes")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.catalog == "" {
		return f, fmt.Errorf("-catalog is required")
	}
	if f.size <= 0 {
		return f, fmt.Errorf("-size must be positive, got %g", f.size)
	}
	if f.rocks < 0 {
		return f, fmt.Errorf("-rocks cannot be negative, got %d", f.rocks)
	}
	return f, nil
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if f.seed != 0 {
		cfg.Seed = f.seed
	}
	if f.out != "" {
		cfg.Output.Dir = f.out
	}
	return cfg, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, "verdant")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a := newApp(logger)
	opts := options{catalogPath: f.catalog, size: f.size, rocks: f.rocks}

	manifest, err := a.run(cfg, opts)
	if err != nil && !f.watch {
		logger.Fatal("generation failed", "err", err)
	}
	if err != nil {
		logger.Error("generation failed", "err", err)
	} else {
		logger.Info("done", "manifest", manifest)
	}

	if !f.watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := watch(ctx, f, a, logger); err != nil {
		logger.Fatal("watch failed", "err", err)
	}
}

// watch regenerates whenever the catalog or config file is written, until
// ctx is cancelled.
func watch(ctx context.Context, f flags, a *app, logger *log.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch directories: editors often replace files on save, which drops
	// a watch on the file itself.
	files := map[string]bool{}
	for _, p := range []string{f.catalog, f.config} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files[abs] = true
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}
	logger.Info("watching for changes", "catalog", f.catalog, "config", f.config)

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if !files[abs] || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			timer = time.After(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		case <-timer:
			timer = nil
			cfg, err := loadConfig(f)
			if err != nil {
				logger.Error("reload config", "err", err)
				continue
			}
			if manifest, err := a.run(cfg, options{catalogPath: f.catalog, size: f.size, rocks: f.rocks}); err != nil {
				logger.Error("generation failed", "err", err)
			} else {
				logger.Info("regenerated", "manifest", manifest)
			}
		}
	}
}
