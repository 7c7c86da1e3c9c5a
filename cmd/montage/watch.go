package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"montage/internal/database"
	"montage/internal/media"
	"montage/internal/script"
	"montage/pkg/models"
)

const rerunDelay = 200 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <script>",
		Short: "Replay an edit script every time it or the media library changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			bin, err := a.loadBin(ctx, db)
			if err != nil {
				return err
			}
			return a.watch(ctx, cmd, args[0], db, bin)
		},
	}
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, path string, db *database.Database, bin *media.Bin) error {
	trigger := make(chan struct{}, 1)
	poke := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create script watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so the directory is watched.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	if a.cfg.Media.WatchForChanges {
		library := media.NewWatcher(a.cfg.Media.LibraryPath, a.prober(), bin, a.logger)
		library.OnAdded = func(s models.Source) {
			if err := db.UpsertSource(s); err != nil {
				a.logger.WithError(err).WithField("source_id", s.ID).Warn("Could not catalog source")
			}
			poke()
		}
		library.OnRemoved = func(id string) {
			if err := db.RemoveSource(id); err != nil {
				a.logger.WithError(err).WithField("source_id", id).Warn("Could not uncatalog source")
			}
			poke()
		}
		if err := library.Start(ctx); err != nil {
			a.logger.WithError(err).Warn("Could not start media library watcher")
		} else {
			a.logger.WithField("library_path", a.cfg.Media.LibraryPath).Info("Watching media library")
		}
	}

	a.logger.WithField("script", path).Info("Watching script")
	poke()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) == abs && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(rerunDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.WithError(err).Warn("Script watcher error")

		case <-pending:
			pending = nil
			poke()

		case <-trigger:
			a.rerun(cmd, path, bin)
		}
	}
}

func (a *app) rerun(cmd *cobra.Command, path string, bin *media.Bin) {
	s, err := script.Load(path)
	if err != nil {
		a.logger.WithError(err).Error("Could not load script")
		return
	}
	model, report, err := a.replay(s, bin)
	if report != nil {
		if perr := a.printReport(cmd, report, model); perr != nil {
			a.logger.WithError(perr).Error("Could not print report")
		}
	}
	if err != nil {
		a.logger.WithError(err).Warn("Script failed")
		return
	}
	a.logger.WithField("steps", len(report.Results)).Info("Script replayed")
}
