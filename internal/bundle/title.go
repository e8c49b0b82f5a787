package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageTitle returns the text of the <title> element of the site's index.html
func PageTitle(root string) (string, error) {
	f, err := os.Open(filepath.Join(root, SiteFolder, IndexFile))
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", IndexFile, err)
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " "), nil
}
