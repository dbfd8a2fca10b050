package forward

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultDialTimeout bounds a fresh dial when Target.Conn is not already
// supplied by the pool (spec.md §4.9 Stock only pools hot connections; a
// cold pick still needs to dial once).
const DefaultDialTimeout = 10 * time.Second

// HTTPForwarder is a passthrough reverse proxy onto types.NodeHTTP backends.
// It clones the inbound request onto the backend connection (reusing
// Target.Conn when the pool supplied one, dialing fresh otherwise), strips
// hop-by-hop headers, appends X-Forwarded-* headers, and streams the
// backend's response back to the client without buffering the body.
type HTTPForwarder struct {
	// DialTimeout bounds a fresh dial when Target.Conn is nil. Defaults to
	// DefaultDialTimeout.
	DialTimeout time.Duration
}

// NewHTTPForwarder constructs an HTTPForwarder with default settings.
func NewHTTPForwarder() *HTTPForwarder {
	return &HTTPForwarder{DialTimeout: DefaultDialTimeout}
}

func (f *HTTPForwarder) dialTimeout() time.Duration {
	if f.DialTimeout <= 0 {
		return DefaultDialTimeout
	}
	return f.DialTimeout
}

// Forward implements Forwarder.
func (f *HTTPForwarder) Forward(ctx context.Context, target Target, request *http.Request, w http.ResponseWriter) error {
	var used sync.Once
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var conn net.Conn
			used.Do(func() { conn = target.Conn })
			if conn != nil {
				return conn, nil
			}
			network, addr = target.Address.DialArgs()
			dialer := net.Dialer{Timeout: f.dialTimeout()}
			return dialer.DialContext(ctx, network, addr)
		},
	}
	defer transport.CloseIdleConnections()

	outbound := request.Clone(ctx)
	outbound.RequestURI = ""
	outbound.URL.Scheme = "http"
	outbound.URL.Host = target.Address.String()
	if path := target.Address.HTTPPath(); path != "" {
		outbound.URL.Path = path
	}
	outbound.Close = false

	stripHopHeaders(outbound.Header)
	applyForwardedHeaders(outbound, request)

	resp, err := transport.RoundTrip(outbound)
	if err != nil {
		return fmt.Errorf("forward: round trip to %s: %w", target.Address, err)
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	stripHopHeaders(w.Header())
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("forward: streaming response from %s: %w", target.Address, err)
	}
	return nil
}

// applyForwardedHeaders appends the standard proxy headers, preserving any
// existing X-Forwarded-For chain from upstream proxies.
func applyForwardedHeaders(outbound, original *http.Request) {
	if host, _, err := net.SplitHostPort(original.RemoteAddr); err == nil {
		if prior := outbound.Header.Get("X-Forwarded-For"); prior != "" {
			outbound.Header.Set("X-Forwarded-For", prior+", "+host)
		} else {
			outbound.Header.Set("X-Forwarded-For", host)
		}
	}
	outbound.Header.Set("X-Forwarded-Host", original.Host)
	proto := "http"
	if original.TLS != nil {
		proto = "https"
	}
	outbound.Header.Set("X-Forwarded-Proto", proto)
	outbound.Header.Set("Via", "1.1 waystation")
}
