// Package bundle packages a site directory into a temporary zip archive for upload.
package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures how a bundle is built
type Options struct {
	// TempDir receives the archive. Defaults to os.TempDir().
	TempDir string
	// Minify shrinks HTML, CSS, JS, JSON and SVG files before they are stored
	Minify bool
	Logger zerolog.Logger
}

// Bundle is a zip archive of a site directory.
// It must be closed to remove the archive from disk.
type Bundle struct {
	Path  string
	Files int
	Size  int64
	// Title is the <title> of the site's index.html
	Title string
	// Saved is the number of bytes removed by minification
	Saved int64
}

// Build validates root and writes a zip of its contents. Entry names are
// relative to root, so the archive contains folder/index.html.
func Build(ctx context.Context, root string, opts Options) (*Bundle, error) {
	if err := Validate(root); err != nil {
		return nil, err
	}

	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	path := filepath.Join(tempDir, uuid.New().String()+".zip")

	logger := opts.Logger

	b := &Bundle{Path: path}
	if title, err := PageTitle(root); err != nil {
		logger.Warn().Err(err).Msg("Failed to read page title")
	} else {
		b.Title = title
	}

	var m *minifier
	if opts.Minify {
		m = newMinifier()
	}

	if err := b.write(ctx, root, m, logger); err != nil {
		_ = b.Close()
		return nil, err
	}

	logger.Debug().
		Str("path", b.Path).
		Int("files", b.Files).
		Int64("bytes", b.Size).
		Int64("minified_bytes_saved", b.Saved).
		Msg("Bundle written")

	return b, nil
}

func (b *Bundle) write(ctx context.Context, root string, m *minifier, logger zerolog.Logger) error {
	out, err := os.OpenFile(b.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	absOut, _ := filepath.Abs(b.Path)
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			logger.Debug().Str("path", path).Msg("Skipping non-regular file")
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == absOut {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if err := b.addFile(zw, path, filepath.ToSlash(rel), d, m, logger); err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}
		b.Files++
		return nil
	})

	closeErr := zw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if walkErr != nil {
		return fmt.Errorf("write archive: %w", walkErr)
	}
	if closeErr != nil {
		return fmt.Errorf("finish archive: %w", closeErr)
	}

	info, err := os.Stat(b.Path)
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	b.Size = info.Size()
	return nil
}

func (b *Bundle) addFile(zw *zip.Writer, path, name string, d fs.DirEntry, m *minifier, logger zerolog.Logger) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	if m != nil && m.handles(name) {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		small, err := m.minify(name, data)
		if err != nil {
			logger.Warn().Err(err).Str("file", name).Msg("Minification failed, storing original")
			small = data
		}
		b.Saved += int64(len(data) - len(small))
		_, err = w.Write(small)
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Open opens the archive for reading
func (b *Bundle) Open() (*os.File, error) {
	return os.Open(b.Path)
}

// Close removes the archive. It is safe to call more than once.
func (b *Bundle) Close() error {
	if b == nil || b.Path == "" {
		return nil
	}
	if err := os.Remove(b.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove archive: %w", err)
	}
	return nil
}

// hasExt reports whether name ends with one of exts, ignoring case
func hasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
