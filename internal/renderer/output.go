package renderer

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Manim places the rendered file in a quality-dependent subtree of the media
// directory, e.g. <media>/videos/scene_<id>/720p30/<id>.mp4. The exact
// quality directory name depends on the installed Manim version, so the
// search matches on the file name rather than the directory layout.

// LocateVideo walks the media directory for the mp4 belonging to a
// generation. It prefers the exact output file name and falls back to any
// mp4 under the generation's scene directory.
func LocateVideo(mediaDir, generationID string) (string, error) {
	target := generationID + ".mp4"
	sceneDir := "scene_" + generationID

	var exact, fallback string
	err := filepath.WalkDir(mediaDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if d.Name() == target {
			exact = path
			return filepath.SkipAll
		}
		if fallback == "" &&
			strings.HasSuffix(d.Name(), ".mp4") &&
			strings.Contains(path, sceneDir) &&
			!strings.Contains(path, "partial_movie_files") {
			fallback = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan media directory: %w", err)
	}

	if exact != "" {
		return exact, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no rendered video found for generation %s", generationID)
}
