package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"montage/internal/cache"
	"montage/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// ErrUnsupported is returned for files whose format cannot be probed.
var ErrUnsupported = errors.New("unsupported media format")

// Prober reads media files and measures their length in timeline frames
type Prober struct {
	fps              float64
	supportedFormats []string
	logger           *logrus.Logger
	cache            *cache.MemoryCache[string, models.Source]
}

// NewProber creates a prober converting durations at fps frames per second
func NewProber(fps float64, supportedFormats []string, logger *logrus.Logger) *Prober {
	if logger == nil {
		logger = logrus.New()
	}
	if fps <= 0 {
		fps = 25
	}
	return &Prober{
		fps:              fps,
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// SetCache makes the prober remember results per file path, size and
// modification time.
func (p *Prober) SetCache(c *cache.MemoryCache[string, models.Source]) {
	p.cache = c
}

// Frames converts a duration to a whole number of frames, rounding up so a
// source is never shorter than its media.
func (p *Prober) Frames(d time.Duration) int {
	return int(math.Ceil(d.Seconds() * p.fps))
}

// Probe reads the file at path and describes it as a source with the given id
func (p *Prober) Probe(path, id string) (models.Source, error) {
	startTime := time.Now()

	if !p.IsMediaFile(path) {
		return models.Source{}, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}

	file, err := os.Open(path)
	if err != nil {
		return models.Source{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return models.Source{}, err
	}

	key := fmt.Sprintf("%s|%d|%d", path, stat.Size(), stat.ModTime().UnixNano())
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			cached.ID = id
			return cached, nil
		}
	}

	duration, err := p.duration(path)
	if err != nil {
		return models.Source{}, fmt.Errorf("measure %s: %w", path, err)
	}
	length := p.Frames(duration)
	if length <= 0 {
		return models.Source{}, fmt.Errorf("%s: empty media", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	source := models.Source{
		ID:       id,
		Title:    name,
		Artist:   "Unknown Artist",
		Album:    "Unknown Album",
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Length:   length,
		FilePath: path,
		FileSize: stat.Size(),
	}

	if metadata, err := tag.ReadFrom(file); err == nil {
		if title := metadata.Title(); title != "" {
			source.Title = title
		}
		if artist := metadata.Artist(); artist != "" {
			source.Artist = artist
		}
		if album := metadata.Album(); album != "" {
			source.Album = album
		}
	} else {
		p.logger.WithFields(logrus.Fields{
			"filePath": path,
			"error":    err.Error(),
		}).Debug("No tags, using filename")
	}

	p.logger.WithFields(logrus.Fields{
		"filePath":       path,
		"source":         id,
		"length":         length,
		"processingTime": time.Since(startTime),
	}).Debug("Probed media file")

	if p.cache != nil {
		p.cache.Set(key, source)
	}
	return source, nil
}

func (p *Prober) duration(path string) (time.Duration, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return durationMP3(path)
	case ".flac":
		return durationFLAC(path)
	case ".wav":
		return durationWAV(path)
	case ".m4a":
		return durationM4A(path)
	default:
		return 0, fmt.Errorf("%s: %w", ext, ErrUnsupported)
	}
}

func durationMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			// Nothing decodable: estimate at 192 kbps.
			st, statErr := f.Stat()
			if statErr != nil {
				return 0, statErr
			}
			return time.Duration(st.Size()*8) * time.Second / 192000, nil
		}
		total += fr.Duration()
		frames++
	}
	return total, nil
}

func durationFLAC(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, errors.New("flac stream missing sample info")
	}
	return time.Duration(si.NSamples) * time.Second / time.Duration(si.SampleRate), nil
}

func durationWAV(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if dec.SampleRate == 0 || frameSize <= 0 {
		return 0, errors.New("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	pcmBytes := st.Size() - 44
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	sampleFrames := pcmBytes / frameSize
	return time.Duration(sampleFrames) * time.Second / time.Duration(dec.SampleRate), nil
}

// durationM4A reads the movie header atom: timescale and duration.
func durationM4A(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	head := make([]byte, 8)
	for {
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := int64(binary.BigEndian.Uint32(head[0:4]))
		if size < 8 {
			return 0, errors.New("invalid atom size")
		}
		if string(head[4:8]) != "moov" {
			if _, err := f.Seek(size-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}

		for read := int64(8); read < size; {
			if _, err := io.ReadFull(f, head); err != nil {
				return 0, err
			}
			subSize := int64(binary.BigEndian.Uint32(head[0:4]))
			if subSize < 8 {
				return 0, errors.New("invalid sub-atom size")
			}
			if string(head[4:8]) == "mvhd" {
				return readMvhd(f)
			}
			if _, err := f.Seek(subSize-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			read += subSize
		}
		return 0, errors.New("mvhd atom not found")
	}
}

func readMvhd(r io.ReadSeeker) (time.Duration, error) {
	version := make([]byte, 4)
	if _, err := io.ReadFull(r, version); err != nil {
		return 0, err
	}
	timesSize := int64(8)
	if version[0] == 1 {
		timesSize = 16
	}
	if _, err := r.Seek(timesSize, io.SeekCurrent); err != nil {
		return 0, err
	}

	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	timescale := binary.BigEndian.Uint32(buf)
	if timescale == 0 {
		return 0, errors.New("invalid timescale")
	}

	var units uint64
	if version[0] == 1 {
		wide := make([]byte, 8)
		if _, err := io.ReadFull(r, wide); err != nil {
			return 0, err
		}
		units = binary.BigEndian.Uint64(wide)
	} else {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}
		units = uint64(binary.BigEndian.Uint32(buf))
	}
	return time.Duration(units) * time.Second / time.Duration(timescale), nil
}

// IsMediaFile checks if a file has a supported extension
func (p *Prober) IsMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range p.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
