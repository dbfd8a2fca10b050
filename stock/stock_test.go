package stock

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeItem struct {
	mu       sync.Mutex
	faded    bool
	borrowOK bool
	destroyed bool
}

func (f *fakeItem) Borrow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.borrowOK
}
func (f *fakeItem) Release() bool { return true }
func (f *fakeItem) Faded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faded
}
func (f *fakeItem) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
}

type countingFactory struct {
	mu    sync.Mutex
	count int
}

func (c *countingFactory) Create(ctx context.Context) (Item, error) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return &fakeItem{borrowOK: true}, nil
}

func TestStock_GetPutReuseReturnsSameItem(t *testing.T) {
	s := New("t", &countingFactory{}, 0, 4)
	defer s.Close()

	item, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s.Put(item, true)

	item2, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if item2 != item {
		t.Fatal("expected Get after reuse Put to return the same item")
	}
}

func TestStock_LimitOneParksSecondGet(t *testing.T) {
	s := New("t", &countingFactory{}, 1, 4)
	defer s.Close()

	item, err := s.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan Item, 1)
	go func() {
		it, _ := s.Get(context.Background())
		done <- it
	}()

	time.Sleep(20 * time.Millisecond)
	if stats := s.Stats(); stats.Waiting != 1 {
		t.Fatalf("expected second Get to be parked, stats=%+v", stats)
	}

	s.Put(item, true)

	select {
	case got := <-done:
		if got != item {
			t.Fatal("expected parked waiter to receive the released item")
		}
	case <-time.After(time.Second):
		t.Fatal("parked Get never resumed after Put")
	}
}

func TestScenarioS5_LimitTwoMaxIdleOneThreeConcurrentGets(t *testing.T) {
	factory := &countingFactory{}
	s := New("t", factory, 2, 1)
	defer s.Close()

	results := make(chan Item, 3)
	for i := 0; i < 3; i++ {
		go func() {
			it, _ := s.Get(context.Background())
			results <- it
		}()
	}

	time.Sleep(30 * time.Millisecond)
	stats := s.Stats()
	if stats.Busy != 2 || stats.Waiting != 1 {
		t.Fatalf("after 3 concurrent Gets on limit=2: stats=%+v, want busy=2 waiting=1", stats)
	}

	first := <-results
	second := <-results
	s.Put(first, true) // served directly to the waiter per S5

	third := <-results
	if third == nil {
		t.Fatal("expected the waiter to eventually receive an item")
	}
	_ = second
}

func TestStock_NonReuseDestroysItem(t *testing.T) {
	s := New("t", &countingFactory{}, 0, 4)
	defer s.Close()

	item, _ := s.Get(context.Background())
	fi := item.(*fakeItem)
	s.Put(item, false)

	fi.mu.Lock()
	destroyed := fi.destroyed
	fi.mu.Unlock()
	if !destroyed {
		t.Fatal("expected item to be destroyed when Put(reuse=false)")
	}
	if stats := s.Stats(); stats.Idle != 0 {
		t.Fatalf("expected idle=0 after non-reuse Put, got %+v", stats)
	}
}

func TestStock_FadedItemDestroyedOnPut(t *testing.T) {
	s := New("t", &countingFactory{}, 0, 4)
	defer s.Close()

	item, _ := s.Get(context.Background())
	fi := item.(*fakeItem)
	fi.faded = true
	s.Put(item, true)

	if stats := s.Stats(); stats.Idle != 0 {
		t.Fatalf("expected faded item not to enter idle, got %+v", stats)
	}
}

func TestStock_CleanupTrimsIdleToMaxIdle(t *testing.T) {
	s := New("t", &countingFactory{}, 0, 2, WithIntervals(10*time.Millisecond, time.Hour))
	defer s.Close()

	items := make([]Item, 4)
	for i := range items {
		it, _ := s.Get(context.Background())
		items[i] = it
	}
	for _, it := range items {
		s.Put(it, true)
	}

	if stats := s.Stats(); stats.Idle != 4 {
		t.Fatalf("expected all 4 returned items idle before cleanup, got %+v", stats)
	}

	time.Sleep(100 * time.Millisecond)
	if stats := s.Stats(); stats.Idle > 2 {
		t.Fatalf("expected cleanup to trim idle to <= max_idle=2, got %+v", stats)
	}
}

func TestStock_GetCancelledByContext(t *testing.T) {
	s := New("t", &countingFactory{}, 1, 4)
	defer s.Close()

	_, err := s.Get(context.Background()) // consume the only slot
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Get(ctx)
	if err == nil {
		t.Fatal("expected context deadline error for a Get that can never be served")
	}
	if stats := s.Stats(); stats.Waiting != 0 {
		t.Fatalf("expected cancelled waiter to be removed, got %+v", stats)
	}
}

func TestStock_EmptyNotifyFiresWhenAllListsEmpty(t *testing.T) {
	notified := make(chan struct{}, 1)
	s := New("t", &countingFactory{}, 0, 4, WithEmptyNotify(func() { notified <- struct{}{} }))
	defer s.Close()

	item, _ := s.Get(context.Background())
	s.Put(item, false) // destroy, not reuse -> idle stays empty -> should notify

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("expected empty-notify callback to fire")
	}
}
