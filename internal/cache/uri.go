package cache

import (
	"path/filepath"
	"strings"
)

// DocumentURI converts a filesystem path to a URI path relative to the web
// document root. Paths outside the document root keep their full path.
func DocumentURI(path, docRoot string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	if docRoot != "" {
		root := strings.TrimSuffix(filepath.ToSlash(filepath.Clean(docRoot)), "/")
		if rel, ok := strings.CutPrefix(p, root); ok && (rel == "" || rel[0] == '/') {
			p = rel
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// ArtifactURI returns the URI for a cached artifact. A configured URI prefix
// wins; otherwise the cache root is mapped through the document root.
func ArtifactURI(k Key, uriPrefix, cacheRoot, docRoot string) string {
	if uriPrefix != "" {
		return strings.TrimSuffix(uriPrefix, "/") + "/" + k.URIPath()
	}
	return strings.TrimSuffix(DocumentURI(cacheRoot, docRoot), "/") + "/" + k.URIPath()
}
