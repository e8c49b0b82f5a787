package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// SiteFolder is the folder inside the root directory that holds the site
	SiteFolder = "folder"
	// IndexFile must exist inside SiteFolder
	IndexFile = "index.html"
)

var (
	// ErrNoNestedFolder is returned when the root directory has no site folder
	ErrNoNestedFolder = errors.New("no nested folder named 'folder' in the root directory")

	// ErrNoIndexHTML is returned when the site folder has no index.html
	ErrNoIndexHTML = errors.New("no index.html in the site folder")
)

// Validate checks that root contains folder/index.html
func Validate(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root directory %s is not a directory", root)
	}

	info, err = os.Stat(filepath.Join(root, SiteFolder))
	if err != nil || !info.IsDir() {
		return ErrNoNestedFolder
	}

	info, err = os.Stat(filepath.Join(root, SiteFolder, IndexFile))
	if err != nil || !info.Mode().IsRegular() {
		return ErrNoIndexHTML
	}

	return nil
}
