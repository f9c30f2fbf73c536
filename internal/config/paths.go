package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoMatch is returned when a directory holds no file with a wanted
// extension.
var ErrNoMatch = errors.New("no matching file")

// Extensions accepted when picking from a directory.
var (
	ShaderExts = []string{".wgsl"}
	ImageExts  = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Picker returns an index in [0, n).
type Picker func(n int) int

// PickFile returns path if it is a file. If it is a directory, one of the
// regular files directly inside it with an extension in exts is chosen with
// pick, or at random when pick is nil.
func PickFile(path string, exts []string, pick Picker) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if slices.Contains(exts, strings.ToLower(filepath.Ext(e.Name()))) {
			matches = append(matches, filepath.Join(path, e.Name()))
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoMatch, path)
	}
	if pick == nil {
		pick = rand.IntN
	}
	return matches[pick(len(matches))], nil
}
