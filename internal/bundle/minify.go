package bundle

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	mjson "github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

type minifier struct {
	m *minify.M
}

func newMinifier() *minifier {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.AddFuncRegexp(regexp.MustCompile("[/+]json$"), mjson.Minify)
	return &minifier{m: m}
}

// mediaType maps a file name to the media type its minifier is registered under
func mediaType(name string) string {
	switch {
	case hasExt(name, ".html", ".htm"):
		return "text/html"
	case hasExt(name, ".css"):
		return "text/css"
	case hasExt(name, ".js", ".mjs"):
		return "application/javascript"
	case hasExt(name, ".json", ".webmanifest"):
		return "application/json"
	case hasExt(name, ".svg"):
		return "image/svg+xml"
	}
	return ""
}

func (m *minifier) handles(name string) bool {
	return mediaType(name) != ""
}

func (m *minifier) minify(name string, data []byte) ([]byte, error) {
	return m.m.Bytes(mediaType(name), data)
}
