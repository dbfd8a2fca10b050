package types

import "testing"

func TestStickyHash_CombineIsXOR(t *testing.T) {
	a := StickyHash(0x0000FFFF)
	b := StickyHash(0xFFFF0000)
	got := a.Combine(b)
	if got != StickyHash(0xFFFFFFFF) {
		t.Fatalf("Combine = %#x, want 0xffffffff", uint32(got))
	}
	if a.Combine(NoSticky) != a {
		t.Fatalf("Combine with NoSticky should be identity")
	}
}

func TestStickyMode_UsesModulo(t *testing.T) {
	modulo := []StickyMode{StickySourceIP, StickyHost, StickyXHost, StickySessionModulo, StickyCookie, StickyJVMRoute}
	for _, m := range modulo {
		if !m.UsesModulo() {
			t.Errorf("%s: expected UsesModulo() = true", m)
		}
	}
	notModulo := []StickyMode{StickyNone, StickyFailover}
	for _, m := range notModulo {
		if m.UsesModulo() {
			t.Errorf("%s: expected UsesModulo() = false", m)
		}
	}
}

func TestStickyMode_Valid(t *testing.T) {
	if !StickyNone.Valid() {
		t.Fatal("StickyNone should be valid")
	}
	if StickyMode("bogus").Valid() {
		t.Fatal("bogus sticky mode should be invalid")
	}
}

func TestDJBHash_Deterministic(t *testing.T) {
	h1 := DJBHash([]byte("example.com"))
	h2 := DJBHash([]byte("example.com"))
	if h1 != h2 {
		t.Fatalf("DJBHash not deterministic: %#x vs %#x", h1, h2)
	}
	h3 := DJBHash([]byte("other.com"))
	if h1 == h3 {
		t.Fatalf("DJBHash collided unexpectedly for distinct inputs (not impossible, but suspicious for this fixture)")
	}
}
