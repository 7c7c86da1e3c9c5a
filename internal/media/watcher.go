package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"montage/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher keeps a bin in step with files created and removed under a
// library directory.
type Watcher struct {
	root    string
	prober  *Prober
	bin     *Bin
	logger  *logrus.Logger
	watcher *fsnotify.Watcher

	// Settle is how long a new file is left alone before probing, so it is
	// fully written.
	Settle time.Duration

	OnAdded   func(models.Source)
	OnRemoved func(id string)
}

// NewWatcher creates a watcher for root. Call Start to begin watching.
func NewWatcher(root string, prober *Prober, bin *Bin, logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Watcher{
		root:   root,
		prober: prober,
		bin:    bin,
		logger: logger,
		Settle: 500 * time.Millisecond,
	}
}

// Start watches root recursively until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := w.addDirectory(w.root); err != nil {
		watcher.Close()
		return err
	}

	go w.watch(ctx)

	w.logger.WithField("library_path", w.root).Info("File watcher started")
	return nil
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) watch(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("File watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isMedia := w.prober.IsMediaFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isMedia:
		go func(name string) {
			select {
			case <-time.After(w.Settle):
				w.handleNewFile(name)
			case <-ctx.Done():
			}
		}(event.Name)

	case (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) && isMedia:
		w.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirectory(event.Name); err != nil {
				w.logger.WithError(err).WithField("directory", event.Name).Warn("Could not watch new directory")
				return
			}
			w.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

func (w *Watcher) handleNewFile(path string) {
	id := SourceID(w.root, path)
	if _, exists := w.bin.Get(id); exists {
		w.logger.WithField("source", id).Debug("Source already in bin")
		return
	}

	source, err := w.prober.Probe(path, id)
	if err != nil {
		w.logger.WithError(err).WithField("file_path", path).Error("Error probing new file")
		return
	}
	w.bin.Add(source)
	if w.OnAdded != nil {
		w.OnAdded(source)
	}

	w.logger.WithFields(logrus.Fields{
		"source": source.ID,
		"title":  source.Title,
		"length": source.Length,
	}).Info("Added new source")
}

func (w *Watcher) handleRemovedFile(path string) {
	id := SourceID(w.root, path)
	if !w.bin.Remove(id) {
		return
	}
	if w.OnRemoved != nil {
		w.OnRemoved(id)
	}
	w.logger.WithField("source", id).Info("Removed source")
}
