package forward

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/justapithecus/waystation/types"
)

// StaticFileForwarder serves files from a local directory for
// types.NodeStatic targets (spec.md §1's "static-file origin"). The
// backend's SocketAddress carries no socket at all for this protocol: its
// Path is the static root directory on disk, and Target.Conn is always nil
// (SPEC_FULL.md §4.11).
//
// Grounded on net/http.FileServer's directory-traversal-safe file lookup;
// wrapped here so it participates in the same Forwarder interface as
// networked protocols instead of being mounted directly as an
// http.Handler.
type StaticFileForwarder struct{}

// NewStaticFileForwarder constructs a StaticFileForwarder.
func NewStaticFileForwarder() *StaticFileForwarder {
	return &StaticFileForwarder{}
}

// Forward implements Forwarder. request.URL.Path is resolved against the
// target's root directory; http.FileServer rejects ".." segments and
// directory listings are left to its default behavior.
func (f *StaticFileForwarder) Forward(_ context.Context, target Target, request *http.Request, w http.ResponseWriter) error {
	root := target.Address.Path()
	requestPath := request.URL.Path
	if httpPath := target.Address.HTTPPath(); httpPath != "" {
		requestPath = httpPath
	}
	requestPath = path.Clean("/" + requestPath)

	cleaned := filepath.Clean(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(requestPath, "/"))))
	if !strings.HasPrefix(cleaned, filepath.Clean(root)+string(filepath.Separator)) && cleaned != filepath.Clean(root) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil
	}

	// A regular file is served as-is, so a request naming index.html gets
	// the file rather than http.FileServer's redirect to its directory.
	if file, err := os.Open(cleaned); err == nil {
		defer file.Close()
		if info, err := file.Stat(); err == nil && !info.IsDir() {
			http.ServeContent(w, request, info.Name(), info.ModTime(), file)
			return nil
		}
	}

	fileServer := http.FileServer(http.Dir(root))
	served := request.Clone(request.Context())
	served.URL.Path = requestPath
	fileServer.ServeHTTP(w, served)
	return nil
}

// staticTarget constructs a Target for a types.NodeStatic member rooted at
// dir, matching the Conn-is-nil contract for static origins.
func staticTarget(dir string) Target {
	return Target{Protocol: types.NodeStatic, Address: types.NewLocalAddress(dir)}
}
