package forward

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestStaticFileForwarder_ServesFileFromRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello static"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	target := staticTarget(dir)
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()

	fwd := NewStaticFileForwarder()
	if err := fwd.Forward(context.Background(), target, req, rec); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello static" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "hello static")
	}
}

func TestStaticFileForwarder_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.WriteFile(outside, []byte("top secret"), 0o644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}
	defer os.Remove(outside)

	target := staticTarget(dir)
	req := httptest.NewRequest(http.MethodGet, "/../secret.txt", nil)
	rec := httptest.NewRecorder()

	fwd := NewStaticFileForwarder()
	if err := fwd.Forward(context.Background(), target, req, rec); err != nil {
		t.Fatalf("Forward returned error: %v", err)
	}
	if rec.Code == http.StatusOK {
		t.Fatalf("expected traversal attempt to be rejected, got 200 with body %q", rec.Body.String())
	}
}

func TestStaticFileForwarder_MissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	target := staticTarget(dir)
	req := httptest.NewRequest(http.MethodGet, "/nope.html", nil)
	rec := httptest.NewRecorder()

	fwd := NewStaticFileForwarder()
	if err := fwd.Forward(context.Background(), target, req, rec); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
