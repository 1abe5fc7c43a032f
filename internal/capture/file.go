package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var stillExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

// FileDevice replays still images from a directory as if they were camera frames.
// Frames are served in file name order and wrap around.
type FileDevice struct {
	dir string
}

// NewFileDevice creates a device backed by the images in dir.
func NewFileDevice(dir string) *FileDevice {
	return &FileDevice{dir: dir}
}

// ID returns the absolute directory path.
func (d *FileDevice) ID() string {
	if abs, err := filepath.Abs(d.dir); err == nil {
		return "file:" + abs
	}
	return "file:" + d.dir
}

// Open lists the images in the directory.
func (d *FileDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
		default:
			return nil, fmt.Errorf("reading %s: %w", d.dir, err)
		}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(stillExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(d.dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrDeviceNotFound, d.dir)
	}
	slices.Sort(files)

	return &fileStream{files: files, constraints: c}, nil
}

type fileStream struct {
	mu          sync.Mutex
	files       []string
	next        int
	constraints Constraints
	stopped     bool
}

func (s *fileStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrNoActiveStream
	}

	path := s.files[s.next%len(s.files)]
	s.next++

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured camera directory
	if err != nil {
		return nil, fmt.Errorf("reading frame %s: %w", path, err)
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", path, err)
	}
	return fitWithin(img, s.constraints.Width, s.constraints.Height), nil
}

func (s *fileStream) Tracks() []Track {
	return []Track{s}
}

func (s *fileStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}
