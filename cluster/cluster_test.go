package cluster

import (
	"testing"
	"time"

	"github.com/justapithecus/waystation/balancer"
	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/stickycache"
	"github.com/justapithecus/waystation/types"
)

func newTestEnv() (*failure.Manager, *balancer.Map, *stickycache.Cache) {
	return failure.NewManager(), balancer.New(), stickycache.New()
}

func TestCluster_StaticRoundRobin(t *testing.T) {
	manager, balancers, sticky := newTestEnv()
	cfg := types.ClusterConfig{
		Name:     "web",
		Protocol: types.NodeHTTP,
		Sticky:   types.StickyNone,
		Members: []types.StaticMember{
			{Host: "10.0.0.1", Port: 80},
			{Host: "10.0.0.2", Port: 80},
		},
	}
	c, err := New(cfg, manager, balancers, sticky)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		addr, err := c.Pick(now, 0)
		if err != nil {
			t.Fatal(err)
		}
		seen[addr.String()]++
	}
	if len(seen) != 2 {
		t.Fatalf("expected round robin to visit both members, got %v", seen)
	}
}

func TestCluster_ZeroconfEmptyReturnsClusterEmptyError(t *testing.T) {
	manager, balancers, sticky := newTestEnv()
	cfg := types.ClusterConfig{
		Name:         "dyn",
		Protocol:     types.NodeHTTP,
		Sticky:       types.StickySourceIP,
		StickyMethod: types.StickyMethodConsistentHashing,
		Zeroconf:     &types.ZeroconfConfig{ServiceType: "_http._tcp", Domain: "local.", IPv4: true},
	}
	c, err := New(cfg, manager, balancers, sticky)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Pick(time.Now(), 42)
	var emptyErr *types.ClusterEmptyError
	if err == nil {
		t.Fatal("expected ClusterEmptyError on an empty zeroconf cluster")
	}
	if !isClusterEmptyError(err, &emptyErr) {
		t.Fatalf("expected *types.ClusterEmptyError, got %T: %v", err, err)
	}
}

func isClusterEmptyError(err error, target **types.ClusterEmptyError) bool {
	e, ok := err.(*types.ClusterEmptyError)
	if ok {
		*target = e
	}
	return ok
}

func TestCluster_ZeroconfConsistentHashingPicksHealthyMember(t *testing.T) {
	manager, balancers, sticky := newTestEnv()
	cfg := types.ClusterConfig{
		Name:         "dyn",
		Protocol:     types.NodeHTTP,
		Sticky:       types.StickySourceIP,
		StickyMethod: types.StickyMethodConsistentHashing,
		Zeroconf:     &types.ZeroconfConfig{ServiceType: "_http._tcp", Domain: "local.", IPv4: true},
	}
	c, err := New(cfg, manager, balancers, sticky)
	if err != nil {
		t.Fatal(err)
	}

	a1 := types.NewLocalAddress("/tmp/z1.sock")
	a2 := types.NewLocalAddress("/tmp/z2.sock")
	c.OnNewObject("node-1", a1)
	c.OnNewObject("node-2", a2)

	now := time.Now()
	addr, err := c.Pick(now, 123)
	if err != nil {
		t.Fatal(err)
	}
	if addr.String() != a1.String() && addr.String() != a2.String() {
		t.Fatalf("Pick returned an address not in the active set: %v", addr)
	}

	// Same sticky hash must be stable across repeated picks while healthy.
	addr2, _ := c.Pick(now, 123)
	if addr2.String() != addr.String() {
		t.Fatalf("expected consistent hashing to be stable for a fixed sticky hash, got %v then %v", addr, addr2)
	}
}

func TestCluster_ZeroconfRendezvousStableAcrossMembershipChurn(t *testing.T) {
	manager, balancers, sticky := newTestEnv()
	cfg := types.ClusterConfig{
		Name:         "dyn",
		Protocol:     types.NodeHTTP,
		Sticky:       types.StickySourceIP,
		StickyMethod: types.StickyMethodRendezvousHashing,
		Zeroconf:     &types.ZeroconfConfig{ServiceType: "_http._tcp", Domain: "local.", IPv4: true},
	}
	c, err := New(cfg, manager, balancers, sticky)
	if err != nil {
		t.Fatal(err)
	}

	a1 := types.NewLocalAddress("/tmp/r1.sock")
	a2 := types.NewLocalAddress("/tmp/r2.sock")
	a3 := types.NewLocalAddress("/tmp/r3.sock")
	c.OnNewObject("n1", a1)
	c.OnNewObject("n2", a2)

	now := time.Now()
	firstPick, err := c.Pick(now, 777)
	if err != nil {
		t.Fatal(err)
	}

	// Adding a third, unrelated member must not change the winner between
	// the two original survivors for the same sticky hash.
	c.OnNewObject("n3", a3)
	secondPick, err := c.Pick(now, 777)
	if err != nil {
		t.Fatal(err)
	}

	if firstPick.String() == a3.String() {
		t.Fatal("fixture error: third member should not win before it existed")
	}
	if secondPick.String() != firstPick.String() && secondPick.String() != a3.String() {
		t.Fatalf("unexpected pick after churn: %v", secondPick)
	}
}

func TestCluster_ZeroconfCacheStickyAssignsAndReuses(t *testing.T) {
	manager, balancers, sticky := newTestEnv()
	cfg := types.ClusterConfig{
		Name:         "dyn",
		Protocol:     types.NodeHTTP,
		Sticky:       types.StickySourceIP,
		StickyMethod: types.StickyMethodCache,
		Zeroconf:     &types.ZeroconfConfig{ServiceType: "_http._tcp", Domain: "local.", IPv4: true},
	}
	c, err := New(cfg, manager, balancers, sticky)
	if err != nil {
		t.Fatal(err)
	}

	a1 := types.NewLocalAddress("/tmp/c1.sock")
	a2 := types.NewLocalAddress("/tmp/c2.sock")
	c.OnNewObject("n1", a1)
	c.OnNewObject("n2", a2)

	now := time.Now()
	first, err := c.Pick(now, 55)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Pick(now, 55)
	if err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Fatalf("expected CACHE method to reuse the same assignment, got %v then %v", first, second)
	}
}
