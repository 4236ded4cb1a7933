package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/philipparndt/meshdash/internal/config"
	"github.com/philipparndt/meshdash/internal/controller"
	"github.com/philipparndt/meshdash/internal/loader"
	"github.com/philipparndt/meshdash/internal/logger"
	"github.com/philipparndt/meshdash/internal/metrics"
	"github.com/philipparndt/meshdash/internal/server"
	"github.com/philipparndt/meshdash/internal/ui"
	"github.com/philipparndt/meshdash/pkg/openscad"
	"github.com/philipparndt/meshdash/pkg/watcher"
	"github.com/philipparndt/meshdash/version"
)

func init() {
	f := rootCmd.Flags()
	f.String("addr", "", "listen address (default from ADDR or :8080)")
	f.Int("cache-size", 0, "bound the decimation cache to N entries (0 = unbounded)")
	f.Bool("watch", false, "reload the mesh when its file changes")
	f.Float64("resolution", config.DefaultResolution, "initial resolution in [0.1, 1]")

	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("log-console", false, "human readable log output")
}

// loadConfig reads the environment and applies explicitly set flags on top
func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.FromEnv()
	flags := cmd.Flags()

	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("cache-size") {
		cfg.CacheSize, _ = flags.GetInt("cache-size")
	}
	if flags.Changed("watch") {
		cfg.Watch, _ = flags.GetBool("watch")
	}
	if flags.Changed("resolution") {
		cfg.DefaultResolution, _ = flags.GetFloat64("resolution")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-console") {
		cfg.LogConsole, _ = flags.GetBool("log-console")
	}
	return cfg
}

func newLogger(cfg config.Config) *slog.Logger {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "meshdash",
	}, os.Stderr)
	return logger.NewSlog(&zl)
}

// newChain is the startup loader order: file, named example, sphere
func newChain(cfg config.Config, log *slog.Logger) (*loader.Chain, *loader.ExampleLoader) {
	files := loader.FileLoader{OpenSCAD: openscad.NewRenderer}
	examples := loader.NewExampleLoader(cfg.ExamplesURL, cfg.DownloadDir, cfg.DownloadTimeout, cfg.Examples, log)
	examples.Files = files
	return loader.NewChain(log, files, examples, loader.DefaultLoader{}), examples
}

func meshArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	if math.IsNaN(cfg.DefaultResolution) || !ui.InRange(cfg.DefaultResolution) {
		return fmt.Errorf("resolution must be in [%v, %v], got %v", ui.ResolutionMin, ui.ResolutionMax, cfg.DefaultResolution)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prov := metrics.Init(metrics.Config{Build: metrics.BuildInfo{
		Version:   version.GetVersion(),
		Revision:  version.GetCommit(),
		BuildDate: version.BuildDate,
	}})
	dash := metrics.NewDashboard(prov.Registerer())

	arg := meshArg(args)
	chain, _ := newChain(cfg, log)
	res, err := chain.Load(ctx, arg)
	if err != nil {
		return err
	}

	ctl := controller.New(res.Mesh, controller.Options{
		InitialResolution: cfg.DefaultResolution,
		CacheSize:         cfg.CacheSize,
		Metrics:           dash,
		Log:               log,
	})

	ctlErr := make(chan error, 1)
	go func() { ctlErr <- ctl.Run(ctx) }()

	if cfg.Watch {
		if err := watch(ctx, cfg, log, chain, ctl, arg, res.Files); err != nil {
			return err
		}
	}

	router := server.NewRouter(server.Deps{
		Dashboard:      ctl,
		Log:            log,
		Metrics:        dash,
		MetricsHandler: prov.Handler(),
	})

	srvErr := make(chan error, 1)
	go func() { srvErr <- server.Run(ctx, cfg.Addr, router, log) }()

	select {
	case err := <-ctlErr:
		stop()
		<-srvErr
		return err
	case err := <-srvErr:
		stop()
		return errors.Join(err, <-ctlErr)
	}
}

// watch reloads the base mesh whenever one of its source files changes.
// A reload that falls back to the sphere keeps the current mesh, since that
// usually means the file was caught half-written.
func watch(ctx context.Context, cfg config.Config, log *slog.Logger, chain *loader.Chain, ctl *controller.Controller, arg string, files []string) error {
	if len(files) == 0 {
		log.Warn("watch requested but the mesh has no local files", "arg", arg)
		return nil
	}

	fw, err := watcher.NewFileWatcher(cfg.WatchDebounce, log)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = fw.Close()
	}()

	var onChange func(string)
	onChange = func(path string) {
		res, err := chain.Load(ctx, arg)
		if err != nil || res.Loader == "default" {
			log.Warn("reload failed, keeping current mesh", "path", path, "attempts", len(res.Attempts))
			return
		}
		if err := ctl.Reload(ctx, res.Mesh); err != nil {
			log.Error("reload failed", "err", err)
			return
		}
		if err := fw.Watch(res.Files, onChange); err != nil {
			log.Error("watch failed", "err", err)
		}
	}
	if err := fw.Watch(files, onChange); err != nil {
		return err
	}
	go fw.Run(ctx)
	log.Info("watching mesh files", "files", len(files))
	return nil
}
