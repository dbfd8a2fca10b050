package worker

import (
	"net"
	"net/http"
	"strings"

	"github.com/justapithecus/waystation/types"
)

// stickyHash computes the request's sticky hash per mode, the
// responsibility spec.md §4.8 assigns to "whichever layer owns the
// request semantics" rather than to the selector. Modes this HTTP
// entrypoint does not (yet) derive a hash for — SESSION_MODULO, COOKIE,
// JVM_ROUTE, which all depend on application- or session-layer state this
// generic proxy entrypoint does not parse — fall back to NoSticky, which
// every selector treats as "no sticky information available".
func stickyHash(mode types.StickyMode, r *http.Request) types.StickyHash {
	switch mode {
	case types.StickySourceIP:
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return types.DJBHash([]byte(host))

	case types.StickyHost:
		return types.DJBHash([]byte(strings.ToLower(r.Host)))

	case types.StickyXHost:
		if xhost := r.Header.Get("X-Forwarded-Host"); xhost != "" {
			return types.DJBHash([]byte(strings.ToLower(xhost)))
		}
		return types.DJBHash([]byte(strings.ToLower(r.Host)))

	case types.StickyFailover:
		return types.NoSticky

	default:
		return types.NoSticky
	}
}
