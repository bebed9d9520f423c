package mime

import (
	"strings"
	"sync"
)

// Content-type table keyed by file extension (including the leading dot).
// Extensions absent from this table are refused by the static responder.
var (
	mu    sync.RWMutex
	types = map[string]string{
		".html":  "text/html; charset=utf-8",
		".htm":   "text/html; charset=utf-8",
		".css":   "text/css; charset=utf-8",
		".js":    "application/javascript",
		".json":  "application/json",
		".xml":   "text/xml; charset=utf-8",
		".txt":   "text/plain; charset=utf-8",
		".png":   "image/png",
		".jpg":   "image/jpeg",
		".jpeg":  "image/jpeg",
		".gif":   "image/gif",
		".svg":   "image/svg+xml",
		".ico":   "image/x-icon",
		".webp":  "image/webp",
		".pdf":   "application/pdf",
		".zip":   "application/zip",
		".gz":    "application/gzip",
		".wasm":  "application/wasm",
		".mp3":   "audio/mpeg",
		".mp4":   "video/mp4",
		".woff":  "font/woff",
		".woff2": "font/woff2",
	}
)

// Lookup returns the content type mapped to the extension.
func Lookup(ext string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	ct, ok := types[strings.ToLower(ext)]
	return ct, ok
}

// Register maps an extension to a content type, replacing any existing entry.
func Register(ext, contentType string) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	mu.Lock()
	types[strings.ToLower(ext)] = contentType
	mu.Unlock()
}
