// Package screenshot persists browser-captured PNG screenshots
// atomically and derives thumbnails for the history listing.
package screenshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const dataURLPrefix = "data:image/png;base64,"

// thumbWidth is the pixel width of generated thumbnails.
const thumbWidth = 256

// Meta describes one saved screenshot.
type Meta struct {
	Filename  string
	Path      string
	Width     int
	Height    int
	SizeBytes int64
	Thumbnail string // empty when disabled or the PNG did not decode
}

// Saver writes screenshots into a directory.
type Saver struct {
	dir        string
	thumbnails bool
	out        io.Writer
}

// Opts holds parameters for creating a Saver.
type Opts struct {
	Dir        string // required
	Thumbnails bool
	Out        io.Writer // defaults to os.Stdout
}

// New creates a Saver, creating the directory when needed.
func New(opts Opts) (*Saver, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("screenshot: dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("screenshot: create dir %s: %w", opts.Dir, err)
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Saver{dir: opts.Dir, thumbnails: opts.Thumbnails, out: out}, nil
}

// Dir returns the directory screenshots are written to.
func (s *Saver) Dir() string {
	return s.dir
}

// ParseDataURL strips the PNG data-URL prefix and decodes the payload.
func ParseDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, dataURLPrefix) {
		return nil, fmt.Errorf("screenshot: not a PNG data URL")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, dataURLPrefix))
	if err != nil {
		return nil, fmt.Errorf("screenshot: decode data URL: %w", err)
	}
	return data, nil
}

// Save writes data to the named file via a temp file and rename, so a
// watcher never observes a half-written screenshot. The name is reduced
// to its base to keep writes inside the screenshot directory.
func (s *Saver) Save(name string, data []byte) (Meta, error) {
	name = s.cleanName(name)
	path := filepath.Join(s.dir, name)

	tmp := fmt.Sprintf("%s-temp%x", path, time.Now().UnixMicro())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return Meta{}, fmt.Errorf("screenshot: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Meta{}, fmt.Errorf("screenshot: rename to %s: %w", path, err)
	}

	meta := Meta{Filename: name, Path: path, SizeBytes: int64(len(data))}
	if cfg, err := png.DecodeConfig(bytes.NewReader(data)); err == nil {
		meta.Width, meta.Height = cfg.Width, cfg.Height
		if s.thumbnails {
			thumb, err := s.writeThumbnail(path, data)
			if err != nil {
				log.Printf("screenshot: thumbnail %s: %v", name, err)
			} else {
				meta.Thumbnail = thumb
			}
		}
	}
	fmt.Fprintf(s.out, "screenshot: saved %s (%d bytes)\n", path, len(data))
	return meta, nil
}

// SaveDataURL decodes a data URL and saves it under name. An empty
// name gets a generated one.
func (s *Saver) SaveDataURL(name, dataURL string) (Meta, error) {
	data, err := ParseDataURL(dataURL)
	if err != nil {
		return Meta{}, err
	}
	return s.Save(name, data)
}

func (s *Saver) cleanName(name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		name = uuid.NewString() + ".png"
	}
	return name
}

// writeThumbnail renders a fixed-width Lanczos thumbnail next to the
// screenshot.
func (s *Saver) writeThumbnail(path string, data []byte) (string, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	thumbPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".thumb.png"
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return "", err
	}
	return thumbPath, nil
}
