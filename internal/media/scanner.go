package media

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"montage/pkg/models"

	"github.com/sirupsen/logrus"
)

// Scanner fills a bin from a library directory
type Scanner struct {
	prober  *Prober
	bin     *Bin
	logger  *logrus.Logger
	workers int

	// OnSource, if set, is called from worker goroutines for every probed source.
	OnSource func(models.Source)
}

// NewScanner creates a scanner probing with one worker per CPU
func NewScanner(prober *Prober, bin *Bin, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{
		prober:  prober,
		bin:     bin,
		logger:  logger,
		workers: runtime.NumCPU(),
	}
}

// SourceID names the source of a file by its slash-separated path
// relative to the library root.
func SourceID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Scan walks root and adds every supported media file to the bin. Files
// that fail to probe are logged and skipped. It returns the number of
// sources added.
func (s *Scanner) Scan(ctx context.Context, root string) (int, error) {
	s.logger.WithField("library_path", root).Info("Scanning media library")

	var wg sync.WaitGroup
	var count int64
	jobs := make(chan string, 100)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				source, err := s.prober.Probe(path, SourceID(root, path))
				if err != nil {
					s.logger.WithError(err).WithField("file_path", path).Warn("Skipping media file")
					continue
				}
				s.bin.Add(source)
				if s.OnSource != nil {
					s.OnSource(source)
				}
				atomic.AddInt64(&count, 1)
				s.logger.WithFields(logrus.Fields{
					"source": source.ID,
					"length": source.Length,
				}).Debug("Added source")
			}
		}()
	}

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !info.IsDir() && s.prober.IsMediaFile(path) {
			jobs <- path
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	s.logger.WithField("sources", count).Info("Scan complete")
	return int(count), walkErr
}
