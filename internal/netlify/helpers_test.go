package netlify_test

import (
	"archive/zip"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, w io.Writer, files map[string]string) {
	t.Helper()
	zw := zip.NewWriter(w)
	for name, content := range files {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}
