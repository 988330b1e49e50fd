package static

import (
	"path/filepath"
	"strings"
)

type ContentType struct {
	MIME         string
	Compressible bool
}

var defaultContentType = ContentType{MIME: "application/octet-stream"}

const charsetUTF8 = "; charset=utf-8"

var contentTypes = map[string]ContentType{
	// Text.
	"html": {"text/html" + charsetUTF8, true},
	"htm":  {"text/html" + charsetUTF8, true},
	"css":  {"text/css" + charsetUTF8, true},
	"txt":  {"text/plain" + charsetUTF8, true},
	"md":   {"text/markdown" + charsetUTF8, true},
	"csv":  {"text/csv" + charsetUTF8, true},
	"xml":  {"text/xml" + charsetUTF8, true},

	// Scripts and data.
	"js":          {"text/javascript" + charsetUTF8, true},
	"mjs":         {"text/javascript" + charsetUTF8, true},
	"json":        {"application/json", true},
	"map":         {"application/json", true},
	"webmanifest": {"application/manifest+json", true},
	"wasm":        {"application/wasm", false},
	"pdf":         {"application/pdf", false},
	"zip":         {"application/zip", false},
	"gz":          {"application/gzip", false},

	// Images.
	"svg":  {"image/svg+xml", true},
	"ico":  {"image/x-icon", true},
	"png":  {"image/png", false},
	"jpg":  {"image/jpeg", false},
	"jpeg": {"image/jpeg", false},
	"gif":  {"image/gif", false},
	"webp": {"image/webp", false},
	"avif": {"image/avif", false},

	// Fonts.
	"ttf":   {"font/ttf", true},
	"otf":   {"font/otf", true},
	"woff":  {"font/woff", false},
	"woff2": {"font/woff2", false},

	// Media.
	"mp3":  {"audio/mpeg", false},
	"ogg":  {"audio/ogg", false},
	"wav":  {"audio/wav", false},
	"mp4":  {"video/mp4", false},
	"webm": {"video/webm", false},
}

// ContentTypeOf guesses the content type of name by its extension.
func ContentTypeOf(name string) ContentType {
	ct, ok := contentTypes[extension(name)]
	if !ok {
		return defaultContentType
	}
	return ct
}

// extension returns the lowercased extension of name, without the dot.
func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
