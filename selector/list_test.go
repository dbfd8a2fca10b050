package selector

import (
	"testing"
	"time"

	"github.com/justapithecus/waystation/types"
)

// fakeList is a List over n members where badUntil[i], if set and in the
// future, marks member i as failing (no fade distinction needed for these
// tests beyond what allowFade already threads through).
type fakeList struct {
	n        int
	badUntil map[int]time.Time
	fading   map[int]bool
}

func newFakeList(n int) *fakeList {
	return &fakeList{n: n, badUntil: map[int]time.Time{}, fading: map[int]bool{}}
}

func (f *fakeList) Size() int { return f.n }

func (f *fakeList) Check(now time.Time, idx int, allowFade bool) bool {
	if until, ok := f.badUntil[idx]; ok && until.After(now) {
		return false
	}
	if f.fading[idx] && !allowFade {
		return false
	}
	return true
}

func (f *fakeList) fail(idx int, d time.Duration, now time.Time) { f.badUntil[idx] = now.Add(d) }
func (f *fakeList) clear(idx int)                                { delete(f.badUntil, idx) }

func TestRoundRobin_VisitsEveryMemberOncePerRevolution(t *testing.T) {
	// invariant 6 (spec.md §8)
	list := newFakeList(3)
	now := time.Now()
	rr := &RoundRobinBalancer{}

	seen := map[int]int{}
	for i := 0; i < 3; i++ {
		seen[rr.Get(list, now, true)]++
	}
	for i := 0; i < 3; i++ {
		if seen[i] != 1 {
			t.Fatalf("member %d visited %d times in one revolution, want 1", i, seen[i])
		}
	}
}

func TestScenarioS1_RoundRobinCyclesABCAThenWraps(t *testing.T) {
	list := newFakeList(3) // A=0 B=1 C=2
	now := time.Now()
	rr := &RoundRobinBalancer{}

	got := []int{
		Pick(list, rr, now, 0, types.StickyNone),
		Pick(list, rr, now, 0, types.StickyNone),
		Pick(list, rr, now, 0, types.StickyNone),
		Pick(list, rr, now, 0, types.StickyNone),
	}
	want := []int{0, 1, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pick %d = %d, want %d (S1)", i, got[i], want[i])
		}
	}
}

func TestScenarioS2_RoundRobinSkipsFailedMemberThenRecovers(t *testing.T) {
	list := newFakeList(3) // A=0 B=1 C=2
	now := time.Now()
	rr := &RoundRobinBalancer{}

	list.fail(1, 50*time.Millisecond, now) // B fails

	seq := make([]int, 4)
	for i := range seq {
		seq[i] = Pick(list, rr, now, 0, types.StickyNone)
	}
	want := []int{0, 2, 0, 2} // A, C, A, C (spec.md §8 S2): B skipped, cursor
	// resumes just past whichever member was actually returned, not past
	// the member skipped on the way to it.
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("pick %d = %d, want %d (S2 sequence=%v)", i, seq[i], want[i], seq)
		}
	}

	later := now.Add(time.Second)
	list.clear(1)
	seq2 := make([]int, 3)
	for i := range seq2 {
		seq2[i] = Pick(list, rr, later, 0, types.StickyNone)
	}
	seenB := false
	for _, v := range seq2 {
		if v == 1 {
			seenB = true
		}
	}
	if !seenB {
		t.Fatalf("B should be picked again once its failure expired, sequence=%v", seq2)
	}
}

func TestScenarioS3_SourceIPModuloPicksMemberThenFailsOver(t *testing.T) {
	list := newFakeList(3) // A=0 B=1 C=2
	now := time.Now()
	rr := &RoundRobinBalancer{}
	h := uint32(0x12345678)

	if h%3 != 0 {
		t.Fatalf("fixture assumption broken: h%%3 = %d, want 0", h%3)
	}
	got := Pick(list, rr, now, h, types.StickySourceIP)
	if got != 0 {
		t.Fatalf("Pick = %d, want 0 (A) for h=%#x", got, h)
	}

	list.fail(0, time.Minute, now)
	got2 := Pick(list, rr, now, h, types.StickySourceIP)
	if got2 != 1 {
		t.Fatalf("after A fails, Pick = %d, want 1 (B)", got2)
	}
}

func TestScenarioS4_Failover(t *testing.T) {
	list := newFakeList(3) // A=0 B=1 C=2
	now := time.Now()
	rr := &RoundRobinBalancer{}

	for i := 0; i < 3; i++ {
		if got := Pick(list, rr, now, 0, types.StickyFailover); got != 0 {
			t.Fatalf("expected A (0) while healthy, got %d", got)
		}
	}

	list.fail(0, time.Minute, now)
	for i := 0; i < 3; i++ {
		if got := Pick(list, rr, now, 0, types.StickyFailover); got != 1 {
			t.Fatalf("expected B (1) once A fails, got %d", got)
		}
	}

	list.fail(1, time.Minute, now)
	for i := 0; i < 3; i++ {
		if got := Pick(list, rr, now, 0, types.StickyFailover); got != 2 {
			t.Fatalf("expected C (2) once A and B fail, got %d", got)
		}
	}

	list.clear(0)
	for i := 0; i < 3; i++ {
		if got := Pick(list, rr, now, 0, types.StickyFailover); got != 0 {
			t.Fatalf("expected A (0) once cleared, got %d", got)
		}
	}
}

func TestPickModulo_ReturnsHModNWhenHealthy(t *testing.T) {
	// invariant 4 (spec.md §8)
	list := newFakeList(4)
	now := time.Now()
	for h := uint32(0); h < 20; h++ {
		want := int(h % 4)
		if got := PickModulo(list, now, h); got != want {
			t.Fatalf("PickModulo(h=%d) = %d, want %d", h, got, want)
		}
	}
}

func TestPickModulo_PrefersNonFadingAlternateWhenPrimaryDegraded(t *testing.T) {
	list := newFakeList(4)
	now := time.Now()
	list.fading[1] = true // primary target (h%4==1) is fading, not hard-failed

	got := PickModulo(list, now, 1)
	if got != 1 {
		t.Fatalf("a merely-fading primary should still be picked on the first probe, got %d want 1", got)
	}

	list.badUntil[1] = now.Add(time.Minute) // now hard-failed too
	got2 := PickModulo(list, now, 1)
	if got2 == 1 {
		t.Fatalf("a hard-failed primary must not be picked, got %d", got2)
	}
}

func TestSingleElementList_AlwaysReturnsThatElement(t *testing.T) {
	list := newFakeList(1)
	now := time.Now()
	rr := &RoundRobinBalancer{}
	modes := []types.StickyMode{types.StickyNone, types.StickyFailover, types.StickySourceIP, types.StickyCookie}
	for _, m := range modes {
		if got := Pick(list, rr, now, 42, m); got != 0 {
			t.Fatalf("mode %s: Pick on single-element list = %d, want 0", m, got)
		}
	}
}
