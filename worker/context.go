package worker

import (
	"context"
	"net"
	"net/http"
)

type connContextKey struct{}

// withPooledConn attaches the connection dialed/borrowed for this attempt
// to ctx, so ServeHTTP can retrieve it after dispatch.RunCluster returns
// without threading an extra return value through AttemptFunc.
func withPooledConn(ctx context.Context, conn net.Conn) context.Context {
	return context.WithValue(ctx, connContextKey{}, conn)
}

// connFromContext retrieves a connection attached by withPooledConn, or
// nil if none was attached (non-HTTP protocols, or a dial failure).
func connFromContext(ctx context.Context) net.Conn {
	conn, _ := ctx.Value(connContextKey{}).(net.Conn)
	return conn
}

// statusWriter wraps http.ResponseWriter to record whether a status line
// has already been written, so a Forwarder failure partway through a
// response body doesn't try to write a second, conflicting status.
type statusWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *statusWriter) WriteHeader(code int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func headersSent(rw http.ResponseWriter) bool {
	sw, ok := rw.(*statusWriter)
	return ok && sw.wrote
}
