// Package media resolves game-relative resource paths and inspects
// the images games point at. Game worlds tend to come from
// Windows-era authoring tools: resource paths use backslashes,
// sometimes carry a drive letter, and rarely match the on-disk case.
// Resolution normalizes all of that against the current game
// directory.
package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	// Formats games actually ship: the stdlib trio plus the Windows
	// leftovers decoded by x/image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Resolver maps game-authored resource paths to absolute paths under
// the current game directory. Safe for concurrent use.
type Resolver struct {
	mu      sync.RWMutex
	gameDir string
}

func NewResolver() *Resolver { return &Resolver{} }

func (r *Resolver) SetGameDir(dir string) {
	r.mu.Lock()
	r.gameDir = dir
	r.mu.Unlock()
}

func (r *Resolver) GameDir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gameDir
}

// Normalize rewrites a game-authored path into host form: backslashes
// become separators, drive letters and leading "./" are dropped.
func Normalize(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	if len(p) >= 2 && p[1] == ':' {
		p = p[2:]
	}
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	return filepath.FromSlash(p)
}

// Resolve turns a game-relative path into an absolute one, matching
// each segment case-insensitively against the directory tree.
// Segments with no on-disk match are kept as written, so a missing
// file resolves to the path where it would be created. Paths that are
// already absolute pass through cleaned only.
func (r *Resolver) Resolve(path string) string {
	slashed := strings.ReplaceAll(path, "\\", "/")
	if native := filepath.FromSlash(slashed); filepath.IsAbs(native) {
		return filepath.Clean(native)
	}
	p := Normalize(path)
	base := r.GameDir()
	if base == "" {
		return p
	}
	cur := base
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == "" || seg == "." {
			continue
		}
		cur = filepath.Join(cur, matchSegment(cur, seg))
	}
	return cur
}

// matchSegment returns the on-disk name matching seg in dir, exact
// match preferred, otherwise ignoring case, otherwise seg unchanged.
func matchSegment(dir, seg string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return seg
	}
	for _, e := range entries {
		if e.Name() == seg {
			return seg
		}
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), seg) {
			return e.Name()
		}
	}
	return seg
}

// FindFile looks for a direct child of dir by name, ignoring case.
func FindFile(dir, name string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

// ProbeImage reports the pixel size and detected format of an image
// file without decoding the full pixel data.
func ProbeImage(path string) (width, height int, format string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, "", fmt.Errorf("media: cannot open image: %w", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, "", fmt.Errorf("media: cannot decode image %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, format, nil
}
