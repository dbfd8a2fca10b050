package worker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/justapithecus/waystation/types"
)

func TestStickyHash_SourceIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:54321"

	got := stickyHash(types.StickySourceIP, r)
	want := types.DJBHash([]byte("203.0.113.9"))
	if got != want {
		t.Fatalf("stickyHash(StickySourceIP) = %d, want %d", got, want)
	}
}

func TestStickyHash_SourceIP_NoPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9"

	got := stickyHash(types.StickySourceIP, r)
	want := types.DJBHash([]byte("203.0.113.9"))
	if got != want {
		t.Fatalf("stickyHash(StickySourceIP) without port = %d, want %d", got, want)
	}
}

func TestStickyHash_Host(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "Example.COM"

	got := stickyHash(types.StickyHost, r)
	want := types.DJBHash([]byte("example.com"))
	if got != want {
		t.Fatalf("stickyHash(StickyHost) = %d, want %d", got, want)
	}
}

func TestStickyHash_XHost_FallsBackToHost(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "origin.example.com"

	got := stickyHash(types.StickyXHost, r)
	want := types.DJBHash([]byte("origin.example.com"))
	if got != want {
		t.Fatalf("stickyHash(StickyXHost) without header = %d, want %d", got, want)
	}
}

func TestStickyHash_XHost_PrefersHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "origin.example.com"
	r.Header.Set("X-Forwarded-Host", "Edge.Example.COM")

	got := stickyHash(types.StickyXHost, r)
	want := types.DJBHash([]byte("edge.example.com"))
	if got != want {
		t.Fatalf("stickyHash(StickyXHost) with header = %d, want %d", got, want)
	}
}

func TestStickyHash_FailoverAndNone(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	if got := stickyHash(types.StickyFailover, r); got != types.NoSticky {
		t.Fatalf("stickyHash(StickyFailover) = %d, want NoSticky", got)
	}
	if got := stickyHash(types.StickyNone, r); got != types.NoSticky {
		t.Fatalf("stickyHash(StickyNone) = %d, want NoSticky", got)
	}
}
