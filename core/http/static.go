package http

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"

	"github.com/jerrygaohk/networksocket/core/mime"
)

// maxCachedFileSize keeps only small files in memory.
const maxCachedFileSize = 1 << 20

// StaticResponder serves files for requests no route matched. The content
// type comes from the extension table: a path without an extension is a
// 404, an unmapped extension a 403. Small file bodies are held in an LRU
// cache keyed by path and invalidated on modification time.
type StaticResponder struct {
	root string

	mu    sync.Mutex
	cache *lru.Cache
}

type cachedFile struct {
	modTime time.Time
	data    []byte
}

// NewStaticResponder serves files under root.
func NewStaticResponder(root string, maxEntries int) *StaticResponder {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &StaticResponder{
		root:  root,
		cache: lru.New(maxEntries),
	}
}

// Respond builds the response frame for a static-file request.
func (sr *StaticResponder) Respond(req *Request) []byte {
	clean := path.Clean(req.Path)
	if strings.Contains(clean, "..") {
		return ErrorResponse(403, "Forbidden")
	}

	ext := path.Ext(clean)
	if ext == "" {
		return ErrorResponse(404, "Not Found")
	}

	contentType, ok := mime.Lookup(ext)
	if !ok {
		return ErrorResponse(403, "Forbidden")
	}

	data, err := sr.load(filepath.Join(sr.root, filepath.FromSlash(clean)))
	if err != nil {
		return ErrorResponse(404, "Not Found")
	}

	resp := NewResponse(200)
	resp.SetBody(contentType, data)
	return resp.Bytes()
}

func (sr *StaticResponder) load(fullPath string) ([]byte, error) {
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		if err == nil {
			err = os.ErrNotExist
		}
		return nil, err
	}

	sr.mu.Lock()
	if v, ok := sr.cache.Get(fullPath); ok {
		entry := v.(*cachedFile)
		if entry.modTime.Equal(info.ModTime()) {
			sr.mu.Unlock()
			return entry.data, nil
		}
		sr.cache.Remove(fullPath)
	}
	sr.mu.Unlock()

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	if len(data) <= maxCachedFileSize {
		sr.mu.Lock()
		sr.cache.Add(fullPath, &cachedFile{modTime: info.ModTime(), data: data})
		sr.mu.Unlock()
	}
	return data, nil
}
