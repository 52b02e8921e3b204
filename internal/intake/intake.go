package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions accepted for transcription. Containers with video tracks are
// included since ffmpeg extracts the audio stream during preprocessing.
var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".aac":  true,
	".wma":  true,
	".opus": true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// NormalizePath cleans a raw path as delivered by drag-and-drop or manual
// entry: surrounding braces, quotes, and whitespace are stripped and the
// result is resolved to an absolute path.
func NormalizePath(raw string) string {
	cleaned := strings.Trim(raw, "{}\"' \t\r\n")
	if cleaned == "" {
		return cleaned
	}
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return filepath.Clean(cleaned)
	}
	return abs
}

// Validate checks that the path points to a usable audio file. Checks run
// in a fixed order and the first failure wins: existence, regular file,
// supported extension, non-empty, readable. The returned string is a
// human-readable verdict either way.
func Validate(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("file does not exist: %s", path)
		}
		return false, fmt.Sprintf("cannot access file: %v", err)
	}

	if !info.Mode().IsRegular() {
		return false, fmt.Sprintf("path is not a regular file: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return false, fmt.Sprintf("unsupported file type: %s (supported: %s)", ext, strings.Join(AllowedExtensions(), ", "))
	}

	if info.Size() == 0 {
		return false, fmt.Sprintf("file is empty: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Sprintf("file is not readable: %v", err)
	}
	f.Close()

	return true, "valid audio file"
}

// AllowedExtensions returns the accepted extensions in sorted order
func AllowedExtensions() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
