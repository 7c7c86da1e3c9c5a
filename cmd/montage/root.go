package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"montage/internal/cache"
	"montage/internal/config"
	"montage/internal/database"
	"montage/internal/engine"
	"montage/internal/media"
	"montage/internal/timeline"
	"montage/internal/undo"
	"montage/pkg/models"
)

const probeCacheTTL = 15 * time.Minute

type app struct {
	configPath string
	format     string

	cfg     *config.Config
	logger  *logrus.Logger
	logFile *os.File
	probes  *cache.MemoryCache[string, models.Source]
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "montage",
		Short:        "Headless multi-track timeline editor",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Replay an edit script and store the result
  montage run intro.yaml --save intro

  # Inspect a stored project
  montage show intro

  # Re-run a script whenever it changes
  montage watch intro.toml
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup()
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a.probes != nil {
			a.probes.Close()
		}
		if a.logFile != nil {
			return a.logFile.Close()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default: $MONTAGE_CONFIG or ./montage.toml)")
	cmd.PersistentFlags().StringVar(&a.format, "format", "text", "Output format (text|json|yaml)")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newProjectsCmd(a))
	cmd.AddCommand(newWatchCmd(a))

	return cmd
}

func (a *app) setup() error {
	cfg, err := config.LoadConfig(config.ResolvePath(a.configPath))
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger := logrus.New()
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		logger.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	a.logger = logger

	switch a.format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid format %q (must be text, json or yaml)", a.format)
	}
	return nil
}

func (a *app) openDatabase() (*database.Database, error) {
	db, err := database.NewDatabase(a.cfg.Database.Path, a.cfg.Database.MaxConnections, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open project store: %w", err)
	}
	return db, nil
}

// prober returns a prober sharing one result cache per invocation.
func (a *app) prober() *media.Prober {
	if a.probes == nil {
		a.probes = cache.NewMemoryCache[string, models.Source](probeCacheTTL)
	}
	p := media.NewProber(a.cfg.Timeline.FPS, a.cfg.Media.SupportedFormats, a.logger)
	p.SetCache(a.probes)
	return p
}

// loadBin fills a bin from the stored source catalog, then rescans the
// library when enabled. Scanned sources are written back to the catalog.
func (a *app) loadBin(ctx context.Context, db *database.Database) (*media.Bin, error) {
	bin := media.NewBin()

	sources, err := db.GetAllSources()
	if err != nil {
		return nil, err
	}
	for _, s := range sources {
		bin.Add(s)
	}

	root := a.cfg.Media.LibraryPath
	if !a.cfg.Media.ScanOnStartup {
		return bin, nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		a.logger.WithField("library_path", root).Warn("Media library does not exist, skipping scan")
		return bin, nil
	}

	scanner := media.NewScanner(a.prober(), bin, a.logger)
	scanner.OnSource = func(s models.Source) {
		if err := db.UpsertSource(s); err != nil {
			a.logger.WithError(err).WithField("source_id", s.ID).Warn("Could not catalog source")
		}
	}
	if _, err := scanner.Scan(ctx, root); err != nil {
		return nil, fmt.Errorf("failed to scan media library: %w", err)
	}
	return bin, nil
}

func (a *app) modelOptions(bin timeline.SourceBin) (timeline.Options, *undo.Stack) {
	stack := undo.NewStack(a.cfg.Timeline.UndoLimit, a.logger)
	return timeline.Options{
		Backend:      engine.NewTractor(a.logger),
		Bin:          bin,
		Stack:        stack,
		Logger:       a.logger,
		SnapDistance: a.cfg.Timeline.SnapDistance,
		NotifyBuffer: a.cfg.Timeline.NotifyBuffer,
	}, stack
}
