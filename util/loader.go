// Package util - Filesystem helpers for batch detection runs.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageFile is one image queued for detection.
type ImageFile struct {
	// Path is the location of the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
}

// supportedExtensions lists the image formats the CLI decodes.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// LoadDirectoryImageFiles reads every supported image from a directory,
// sorted by filename so batch output order is stable.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The loaded images.
//   - error: If the directory or any image cannot be read.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, readErr
		}
		files = append(files, ImageFile{Path: path, Data: data})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}
