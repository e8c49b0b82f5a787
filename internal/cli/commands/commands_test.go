package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/alvesdmateus/publify/internal/bundle"
	"github.com/alvesdmateus/publify/internal/domains"
	"github.com/alvesdmateus/publify/internal/netlify"
	"github.com/alvesdmateus/publify/internal/netlify/netlifytest"
	"github.com/alvesdmateus/publify/internal/sites"
	"github.com/alvesdmateus/publify/pkg/config"
)

func strPtr(s string) *string { return &s }

type result struct {
	stdout  string
	stderr  string
	err     error
	tempDir string
}

// execute runs pub against srv with NETLIFY_DOMAINS=example.org
func execute(t *testing.T, srv *netlifytest.Server, args ...string) result {
	t.Helper()

	tempDir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NETLIFY_TOKEN", netlifytest.Token)
	t.Setenv("NETLIFY_DOMAINS", "example.org")
	t.Setenv("PUBLIFY_DEPLOY_TEMP_DIR", tempDir)
	t.Setenv("PUBLIFY_METRICS_TEXTFILE", "")
	if srv != nil {
		t.Setenv("PUBLIFY_NETLIFY_API_URL", srv.URL())
	}

	root := NewRootCmd(zerolog.Nop())
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := Run(context.Background(), root, args)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err, tempDir: tempDir}
}

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

func newFakeAPI(t *testing.T) *netlifytest.Server {
	return netlifytest.NewServer(t,
		netlify.Site{Name: "blog", URL: "http://blog.netlify.app"},
		netlify.Site{Name: "shop", URL: "http://shop.example.org", CustomDomain: strPtr("shop.example.org")},
		netlify.Site{Name: "brave-curie", URL: "http://brave-curie.netlify.app"},
	)
}

func TestList_Text(t *testing.T) {
	res := execute(t, newFakeAPI(t), "list")
	require.NoError(t, res.err)

	expected := strings.Join([]string{
		"sites without custom domains:",
		"blog: http://blog.netlify.app",
		"brave-curie: http://brave-curie.netlify.app",
		"",
		"sites with custom domains:",
		"shop: http://shop.example.org (shop.example.org)",
		"",
	}, "\n")
	assert.Equal(t, expected, res.stdout)
	assert.Empty(t, res.stderr)
}

func TestList_JSON(t *testing.T) {
	res := execute(t, newFakeAPI(t), "list", "--output", "json")
	require.NoError(t, res.err)

	var listing sites.Listing
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &listing))
	assert.Len(t, listing.Plain, 2)
	require.Len(t, listing.Custom, 1)
	assert.Equal(t, "shop.example.org", listing.Custom[0].Domain())
}

func TestList_YAML(t *testing.T) {
	res := execute(t, newFakeAPI(t), "list", "-o", "yaml")
	require.NoError(t, res.err)

	var listing map[string][]map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &listing))
	assert.Len(t, listing["without_custom_domain"], 2)
	assert.Len(t, listing["with_custom_domain"], 1)
}

func TestList_UnknownFormat(t *testing.T) {
	res := execute(t, newFakeAPI(t), "list", "-o", "xml")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, `Unknown output format "xml"`)
}

func TestDeploy_RootArguments(t *testing.T) {
	srv := newFakeAPI(t)
	root := writeSite(t, map[string]string{"folder/index.html": "<title>Hi</title>"})

	res := execute(t, srv, root, "hello")
	require.NoError(t, res.err)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	site, ok := srv.Site(uploads[0].SiteID)
	require.True(t, ok)
	originalURL := "http://" + site.DefaultDomain

	assert.Equal(t,
		"the site is published: "+originalURL+"\n"+
			"the site is published at hello.example.org. (originally '"+originalURL+"')\n",
		res.stdout)
	assert.Equal(t, "hello.example.org", site.Domain())

	entries, err := os.ReadDir(res.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeploy_Subcommand(t *testing.T) {
	srv := newFakeAPI(t)
	root := writeSite(t, map[string]string{
		"folder/index.html": "<html>\n  <body>\n    <p>hi</p>\n  </body>\n</html>\n",
	})

	res := execute(t, srv, "deploy", "--minify", root)
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "the site is published: http://"))
	assert.NotContains(t, res.stdout, "published at")

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.NotContains(t, string(uploads[0].Files["folder/index.html"]), "\n  ")
}

func TestDeploy_MalformedDirectory(t *testing.T) {
	srv := newFakeAPI(t)
	root := writeSite(t, map[string]string{"folder/about.html": "x"})

	res := execute(t, srv, root, "hello")
	require.ErrorIs(t, res.err, bundle.ErrNoIndexHTML)
	assert.Equal(t, "Please add an index.html to the site's folder\n", res.stderr)
	assert.Empty(t, res.stdout)
	assert.Empty(t, srv.Requests())
}

func TestCustom(t *testing.T) {
	srv := newFakeAPI(t)

	res := execute(t, srv, "custom", "news", "blog")
	require.NoError(t, res.err)
	assert.Equal(t, "the site is published at news.example.org. (originally 'http://blog.netlify.app')\n", res.stdout)

	res = execute(t, srv, "set-custom-domain", "news", "brave-curie")
	require.Error(t, res.err)
	assert.Equal(t, "'news.example.org' is already in use\n", res.stderr)
}

func TestCustom_InUseMakesNoMutation(t *testing.T) {
	srv := newFakeAPI(t)

	res := execute(t, srv, "custom", "shop", "blog")
	require.Error(t, res.err)
	assert.True(t, sites.IsDomainInUse(res.err))
	assert.Equal(t, "'shop.example.org' is already in use\n", res.stderr)
	assert.Empty(t, srv.Mutations())
}

func TestRemoveCustom(t *testing.T) {
	srv := newFakeAPI(t)

	res := execute(t, srv, "remove-custom", "shop")
	require.NoError(t, res.err)
	assert.Equal(t, "shop.example.org was removed\n", res.stdout)

	res = execute(t, srv, "remove-custom-domain", "shop")
	require.Error(t, res.err)
	assert.Equal(t, "No site found with custom domain 'shop.example.org'\n", res.stderr)
}

func TestDelete(t *testing.T) {
	srv := newFakeAPI(t)

	res := execute(t, srv, "delete", "brave-curie")
	require.NoError(t, res.err)
	assert.Equal(t, "site brave-curie was deleted\n", res.stdout)
	assert.Len(t, srv.Sites(), 2)

	res = execute(t, srv, "remove", "shop.example.org")
	require.NoError(t, res.err)
	assert.Equal(t, "site shop.example.org was deleted\n", res.stdout)
	assert.Len(t, srv.Sites(), 1)

	res = execute(t, srv, "delete", "missing")
	require.Error(t, res.err)
	assert.Equal(t, "No site found with custom domain 'missing.example.org'\n", res.stderr)
}

func TestMissingToken(t *testing.T) {
	srv := newFakeAPI(t)
	t.Setenv("NETLIFY_TOKEN", "")

	root := NewRootCmd(zerolog.Nop())
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PUBLIFY_NETLIFY_API_URL", srv.URL())

	err := Run(context.Background(), root, []string{"list"})
	require.ErrorIs(t, err, config.ErrMissingToken)
	assert.Equal(t, "Please set the environment variable NETLIFY_TOKEN\n", stderr.String())
	assert.Empty(t, srv.Requests())
}

func TestOfflineCommandsNeedNoToken(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		expect string
	}{
		{"version", []string{"version"}, "pub " + Version},
		{"help command", []string{"help"}, "publify publishes a local directory"},
		{"help flag", []string{"--help"}, "Usage:"},
		{"no arguments", nil, "Usage:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NETLIFY_TOKEN", "")
			t.Setenv("HOME", t.TempDir())

			root := NewRootCmd(zerolog.Nop())
			var stdout, stderr bytes.Buffer
			root.SetOut(&stdout)
			root.SetErr(&stderr)

			require.NoError(t, Run(context.Background(), root, tt.args))
			assert.Contains(t, stdout.String(), tt.expect)
			assert.Empty(t, stderr.String())
		})
	}
}

func TestUnauthorized(t *testing.T) {
	srv := newFakeAPI(t)
	srv.FailNext(http.MethodGet, http.StatusUnauthorized, 1)

	res := execute(t, srv, "list")
	require.Error(t, res.err)
	assert.Equal(t, "Netlify rejected the token, please check NETLIFY_TOKEN\n", res.stderr)
}

func TestMetricsTextfile(t *testing.T) {
	srv := newFakeAPI(t)
	path := filepath.Join(t.TempDir(), "publify.prom")

	t.Setenv("PUBLIFY_METRICS_TEXTFILE", path)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NETLIFY_TOKEN", netlifytest.Token)
	t.Setenv("PUBLIFY_NETLIFY_API_URL", srv.URL())

	root := NewRootCmd(zerolog.Nop())
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	require.NoError(t, Run(context.Background(), root, []string{"list"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `publify_commands_total{command="list",status="success"} 1`)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing token", config.ErrMissingToken, "Please set the environment variable NETLIFY_TOKEN"},
		{"no nested folder", fmt.Errorf("build bundle: %w", bundle.ErrNoNestedFolder), "Please create a folder named 'folder' in the root of the site's directory, and put all the files in there."},
		{"no custom domains", sites.ErrNoCustomDomains, "Please set the environment variable NETLIFY_DOMAINS"},
		{"no suffixes", domains.ErrNoSuffixes, "Please set the environment variable NETLIFY_DOMAINS"},
		{"delete without custom domains", fmt.Errorf("%w, and no site found with domain 'x'", sites.ErrNoCustomDomains), "No custom domains configured in NETLIFY_DOMAINS, and no site found with domain 'x'"},
		{"empty domain", domains.ErrEmptyDomain, "Please provide a domain"},
		{"ambiguous suffix", domains.ErrAmbiguousSuffix, "Several domains are set in NETLIFY_DOMAINS, please use a full domain name"},
		{"not found", &sites.NotFoundError{Domain: "x"}, "No site found with domain 'x'"},
		{"ambiguous", &sites.AmbiguousError{Domain: "b", Matches: []string{"http://b1", "http://b2"}}, "Too many results for partial domain 'b', it's ambiguous: http://b1, http://b2"},
		{"cancelled", fmt.Errorf("list sites: %w", context.Canceled), "Interrupted"},
		{"other", errors.New("boom"), "Boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeError(tt.err))
		})
	}
}
