package site

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// verifyAssets walks the compiled pages in the staging dir and checks that
// every site-local asset they reference (img src, srcset entries,
// stylesheets) exists in the staging tree. Returns one problem string per
// missing asset.
func verifyAssets(stagingDir string) ([]string, error) {
	var problems []string

	err := filepath.WalkDir(stagingDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		doc, err := html.Parse(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		pageRel, _ := filepath.Rel(stagingDir, path)
		for _, ref := range localAssetRefs(doc) {
			target := filepath.Join(stagingDir, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
			if _, statErr := os.Stat(target); statErr != nil {
				problems = append(problems, fmt.Sprintf("%s references missing asset %s",
					filepath.ToSlash(pageRel), ref))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return problems, nil
}

// localAssetRefs collects site-absolute asset references from a parsed page.
func localAssetRefs(doc *html.Node) []string {
	var refs []string
	seen := map[string]struct{}{}
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if !strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "//") {
			return
		}
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img":
				for _, attr := range n.Attr {
					switch attr.Key {
					case "src":
						add(attr.Val)
					case "srcset":
						for _, entry := range strings.Split(attr.Val, ",") {
							fields := strings.Fields(entry)
							if len(fields) > 0 {
								add(fields[0])
							}
						}
					}
				}
			case "link":
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						add(attr.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs
}
