package static

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"hunk/application/util/uri"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Index of {{.Path}}</title>
<style>
a { text-decoration: none; display: inline-block; width: 100%; }
a.folder { font-weight: bold; }
td.size, td.modified { white-space: nowrap; color: #636e72; }
</style>
</head>
<body>
<table style="width: 100%">
<thead><tr><th></th><th></th><th></th></tr></thead>
<tbody>
{{- if .Parent}}
<tr><td><a class="folder" href="{{.Parent}}">..</a></td><td></td><td></td></tr>
{{- end}}
{{- range .Entries}}
<tr><td><a class="{{if .IsDir}}folder{{else}}file{{end}}" href="{{.Href}}">{{.Name}}</a></td><td class="size">{{.Size}}</td><td class="modified">{{.Modified}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

type listing struct {
	Path    string
	Parent  string
	Entries []listingEntry
}

type listingEntry struct {
	Name     string
	Href     string
	IsDir    bool
	Size     string
	Modified string

	sortKey string
}

// listDirectory renders dir, which should be root or inside of it, as an HTML page.
// Folders come first, then everything is ordered by case-insensitive name.
func listDirectory(root, dir string, now time.Time) ([]byte, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading directory")
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, errors.Errorf("%q is outside of %q", dir, root)
	}

	page := listing{Path: "/"}
	if rel != "." {
		page.Path = "/" + filepath.ToSlash(rel) + "/"
		page.Parent = hrefOf(filepath.Dir(rel), true)
	}

	for _, dirEntry := range dirEntries {
		// Symlinks are followed, like the files they point to are served.
		info, err := os.Stat(filepath.Join(dir, dirEntry.Name()))
		if err != nil {
			continue
		}

		entry := listingEntry{
			Name:     dirEntry.Name(),
			Href:     hrefOf(filepath.Join(rel, dirEntry.Name()), info.IsDir()),
			IsDir:    info.IsDir(),
			Modified: humanize.RelTime(info.ModTime(), now, "ago", "from now"),
			sortKey:  strings.ToLower(dirEntry.Name()),
		}
		if entry.IsDir {
			entry.Name += "/"
		} else {
			entry.Size = humanize.IBytes(uint64(info.Size()))
		}

		page.Entries = append(page.Entries, entry)
	}

	slices.SortFunc(page.Entries, func(a, b listingEntry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(a.sortKey, b.sortKey)
	})

	buf := new(bytes.Buffer)
	if err := listingTemplate.Execute(buf, page); err != nil {
		return nil, errors.Wrap(err, "rendering listing")
	}

	return buf.Bytes(), nil
}

// hrefOf turns a path relative to root into an escaped absolute path.
func hrefOf(rel string, isDir bool) string {
	href := "/"
	if rel != "." {
		href += filepath.ToSlash(rel)
	}
	if isDir && !strings.HasSuffix(href, "/") {
		href += "/"
	}
	return uri.EscapePath(href)
}
