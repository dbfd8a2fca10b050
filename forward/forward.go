// Package forward hands a picked backend off to a protocol-specific
// transport (spec.md §1, SPEC_FULL.md §4.11). The selector packages only
// ever produce a types.SocketAddress; turning that into bytes on the wire
// is deliberately out of scope for everything but HTTP, so Forwarder is
// kept to a one-method interface that a caller can implement for AJP,
// FastCGI, CGI, or WAS without touching the selection or pool code.
//
// Grounded on quarry/runtime/executor.go's ExecutorManager, which hands a
// resolved target (a script, a proxy endpoint) to a process boundary and
// reports back a result rather than returning wire bytes itself; Forward
// plays the same role for a backend connection instead of a subprocess.
// The HTTP reference implementation's header and body handling follows
// the proxying conventions used by this pack's reverse-proxy examples
// (request cloning, X-Forwarded-* headers, streamed response copy).
package forward

import (
	"context"
	"net"
	"net/http"

	"github.com/justapithecus/waystation/types"
)

// Target is a single backend chosen by a selector, handed to a Forwarder.
type Target struct {
	// Protocol is the wire protocol the backend speaks.
	Protocol types.NodeProtocol
	// Address is the backend's socket address.
	Address types.SocketAddress
	// Conn is present for pooled/streamed protocols (the stock package
	// hands back a live connection); nil for NodeStatic, where there is
	// nothing to dial.
	Conn net.Conn
}

// Forwarder hands a request off to a Target and writes the backend's
// response to w. Implementations for protocols other than HTTP and static
// files (AJP, FastCGI, CGI, WAS) are out of scope (spec.md §1) and are
// expected to be supplied by the embedder.
type Forwarder interface {
	Forward(ctx context.Context, target Target, request *http.Request, w http.ResponseWriter) error
}

// hopHeaders are stripped before forwarding a request or response, per
// RFC 7230 §6.1 (connection-specific headers that must not be forwarded
// as-is between hops).
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func stripHopHeaders(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

// copyHeaders copies src into dst, leaving dst's existing values intact
// for any key not present in src.
func copyHeaders(dst, src http.Header) {
	for k, vals := range src {
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
}
