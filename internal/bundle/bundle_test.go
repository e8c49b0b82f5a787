package bundle

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSite creates files (relative path -> content) under a new temp root
func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	return files
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{"valid", map[string]string{"folder/index.html": "<html></html>"}, nil},
		{"no nested folder", map[string]string{"index.html": "<html></html>"}, ErrNoNestedFolder},
		{"folder is a file", map[string]string{"folder": "oops"}, ErrNoNestedFolder},
		{"no index", map[string]string{"folder/about.html": "<html></html>"}, ErrNoIndexHTML},
		{"index is a directory", map[string]string{"folder/index.html/x": "x"}, ErrNoIndexHTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(writeSite(t, tt.files))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_MissingRoot(t *testing.T) {
	err := Validate(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild(t *testing.T) {
	root := writeSite(t, map[string]string{
		"folder/index.html":   "<html><head><title> My  Site </title></head><body>hi</body></html>",
		"folder/css/site.css": "body { color: red; }",
		"folder/.git/config":  "[core]",
		".git/HEAD":           "ref: refs/heads/main",
		"README.md":           "notes",
	})
	tempDir := t.TempDir()

	b, err := Build(context.Background(), root, Options{TempDir: tempDir, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, tempDir, filepath.Dir(b.Path))
	assert.Equal(t, ".zip", filepath.Ext(b.Path))
	assert.Equal(t, "My Site", b.Title)
	assert.Positive(t, b.Size)

	files := readZip(t, b.Path)
	assert.Contains(t, files, "folder/index.html")
	assert.Contains(t, files, "folder/css/site.css")
	assert.Contains(t, files, "README.md")
	assert.NotContains(t, files, ".git/HEAD")
	assert.NotContains(t, files, "folder/.git/config")
	assert.Equal(t, len(files), b.Files)
	assert.Equal(t, "body { color: red; }", files["folder/css/site.css"])
}

func TestBuild_InvalidLayoutCreatesNothing(t *testing.T) {
	root := writeSite(t, map[string]string{"index.html": "<html></html>"})
	tempDir := t.TempDir()

	_, err := Build(context.Background(), root, Options{TempDir: tempDir})
	assert.ErrorIs(t, err, ErrNoNestedFolder)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuild_Minify(t *testing.T) {
	root := writeSite(t, map[string]string{
		"folder/index.html": "<html>\n  <head>\n    <title>Hi</title>\n  </head>\n  <body>\n    <p>  hello  </p>\n  </body>\n</html>\n",
		"folder/site.css":   "body {\n  color: #ff0000;\n}\n",
		"folder/data.json":  "{\n  \"a\": 1\n}\n",
		"folder/photo.png":  "\x89PNG not really",
	})

	b, err := Build(context.Background(), root, Options{TempDir: t.TempDir(), Minify: true})
	require.NoError(t, err)
	defer b.Close()

	files := readZip(t, b.Path)
	assert.Equal(t, "body{color:red}", files["folder/site.css"])
	assert.Equal(t, `{"a":1}`, files["folder/data.json"])
	assert.NotContains(t, files["folder/index.html"], "\n  ")
	assert.Equal(t, "\x89PNG not really", files["folder/photo.png"])
	assert.Positive(t, b.Saved)
}

func TestBuild_CancelledContext(t *testing.T) {
	root := writeSite(t, map[string]string{"folder/index.html": "<html></html>"})
	tempDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, root, Options{TempDir: tempDir})
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial archive must be removed")
}

func TestBundle_Close(t *testing.T) {
	root := writeSite(t, map[string]string{"folder/index.html": "<html></html>"})

	b, err := Build(context.Background(), root, Options{TempDir: t.TempDir()})
	require.NoError(t, err)

	f, err := b.Open()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, b.Close())
	_, err = os.Stat(b.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Idempotent
	assert.NoError(t, b.Close())
	var nilBundle *Bundle
	assert.NoError(t, nilBundle.Close())
}

func TestPageTitle_Missing(t *testing.T) {
	root := writeSite(t, map[string]string{"folder/index.html": "<p>no title</p>"})

	title, err := PageTitle(root)
	require.NoError(t, err)
	assert.Empty(t, title)
}

func TestReadRevision_NotARepository(t *testing.T) {
	_, err := ReadRevision(t.TempDir())
	assert.ErrorIs(t, err, ErrNoRevision)
}

func TestReadRevision_EmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = ReadRevision(dir)
	assert.ErrorIs(t, err, ErrNoRevision)
}

func TestReadRevision(t *testing.T) {
	root := writeSite(t, map[string]string{"folder/index.html": "<html></html>"})
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("folder/index.html")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	// Detected from a subdirectory as well
	rev, err := ReadRevision(filepath.Join(root, "folder"))
	require.NoError(t, err)
	assert.Equal(t, hash.String(), rev.Commit)
	assert.Equal(t, hash.String()[:7], rev.Short())
	assert.NotEmpty(t, rev.Branch)
}
