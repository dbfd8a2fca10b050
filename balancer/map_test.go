package balancer

import (
	"testing"
	"time"

	"github.com/justapithecus/waystation/hashring"
)

type strMember string

func (s strMember) SteadyPart() []byte { return []byte(s) }

func members(names ...string) []hashring.Member {
	out := make([]hashring.Member, len(names))
	for i, n := range names {
		out[i] = strMember(n)
	}
	return out
}

func TestMap_SameKeyReturnsSameBalancer(t *testing.T) {
	m := New()
	k := KeyOf(members("a", "b", "c"))

	b1 := m.MakeRoundRobinBalancer(k)
	b1.Get(fakeList{3}, time.Now(), true)

	b2 := m.MakeRoundRobinBalancer(k)
	if b1 != b2 {
		t.Fatal("expected the same *RoundRobinBalancer instance for the same key")
	}
}

func TestMap_DifferentOrderDifferentKey(t *testing.T) {
	k1 := KeyOf(members("a", "b"))
	k2 := KeyOf(members("b", "a"))
	if k1 == k2 {
		t.Fatal("expected differently-ordered member lists to hash differently")
	}
}

func TestMap_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewWithCapacity(2)
	ka := KeyOf(members("a"))
	kb := KeyOf(members("b"))
	kc := KeyOf(members("c"))

	m.MakeRoundRobinBalancer(ka)
	m.MakeRoundRobinBalancer(kb)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}

	m.MakeRoundRobinBalancer(kc) // evicts ka (least recently used)
	if m.Len() != 2 {
		t.Fatalf("Len() after eviction = %d, want 2", m.Len())
	}
	if _, ok := m.entries[ka]; ok {
		t.Fatal("expected ka to be evicted")
	}
	if _, ok := m.entries[kb]; !ok {
		t.Fatal("expected kb to survive eviction")
	}
}

// minimal selector.List double, all members always healthy.
type fakeList struct{ n int }

func (f fakeList) Size() int                                    { return f.n }
func (f fakeList) Check(_ time.Time, _ int, _ bool) bool { return true }
