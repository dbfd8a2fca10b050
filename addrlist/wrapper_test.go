package addrlist

import (
	"testing"
	"time"

	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/types"
)

func TestWrapper_CheckDelegatesToManager(t *testing.T) {
	a := types.NewLocalAddress("/tmp/a.sock")
	b := types.NewLocalAddress("/tmp/b.sock")
	list := types.NewAddressList(types.StickyNone, a, b)
	fm := failure.NewManager()
	w := New(list, fm)

	now := time.Now()
	if !w.Check(now, 0, false) {
		t.Fatal("expected healthy member to pass Check")
	}

	fm.Make(a).Set(types.FailureConnect, now, time.Minute)
	if w.Check(now, 0, false) {
		t.Fatal("expected failed member to not pass Check")
	}
	if !w.Check(now, 1, false) {
		t.Fatal("expected untouched member b to still pass Check")
	}
}

func TestWrapper_Members(t *testing.T) {
	a := types.NewLocalAddress("/tmp/a.sock")
	b := types.NewLocalAddress("/tmp/b.sock")
	list := types.NewAddressList(types.StickyNone, a, b)
	w := New(list, failure.NewManager())

	members := w.Members()
	if len(members) != 2 {
		t.Fatalf("Members() len = %d, want 2", len(members))
	}
	if string(members[0].SteadyPart()) != string(a.SteadyPart()) {
		t.Fatal("Members()[0] does not match address a's steady part")
	}
}
