// Package hashring implements the consistent-hashing ring used for
// Zeroconf CONSISTENT_HASHING selection (spec.md §3 HashRing<N, R>, §4.6).
//
// New domain logic grounded on quarry/proxy/selector.go's existing hashing
// concerns (it already turns a pool + sticky hash into a bucket index);
// this package generalizes that into a fixed-bucket ring seeded by BLAKE2b,
// using golang.org/x/crypto/blake2b adopted from the wider pack
// (joeycumines-go-utilpkg carries golang.org/x/crypto) since the spec names
// BLAKE2b explicitly and the teacher itself only needed crypto/rand.
package hashring

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// DefaultBuckets and DefaultReplicas are the spec's load-tested defaults
// (spec.md §3, §9): tunable constants, not contracts.
const (
	DefaultBuckets  = 8192
	DefaultReplicas = 64
)

// Member is anything a Ring can place on the wheel: it need only expose a
// stable hashing key (a SocketAddress's SteadyPart, typically).
type Member interface {
	SteadyPart() []byte
}

// Ring is a fixed-size consistent-hashing ring. Buckets are assigned once,
// at construction, from the member set passed to New; a membership change
// requires building a new Ring (Cluster does this on its "dirty" flag,
// spec.md §4.6).
type Ring struct {
	buckets  []int // index into members, per bucket
	members  []Member
	replicas int
}

// New builds a Ring over members, placing replicas per member by hashing
// (steadyPart || replicaIndex) with BLAKE2b truncated to its first 4 bytes,
// read big-endian (spec.md §3).
func New(members []Member, buckets, replicas int) *Ring {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	if replicas <= 0 {
		replicas = DefaultReplicas
	}

	r := &Ring{
		buckets:  make([]int, buckets),
		members:  members,
		replicas: replicas,
	}
	for i := range r.buckets {
		r.buckets[i] = -1
	}
	if len(members) == 0 {
		return r
	}

	for mi, m := range members {
		steady := m.SteadyPart()
		for rep := 0; rep < replicas; rep++ {
			h := replicaHash(steady, rep)
			idx := int(h % uint32(buckets))
			// First writer wins for a given bucket; later replicas that
			// collide simply don't get that exact bucket, same as the
			// source's fixed-capacity ring semantics.
			if r.buckets[idx] == -1 {
				r.buckets[idx] = mi
			}
		}
	}

	// A bucket no replica landed on (most of them whenever members*replicas
	// is well below the bucket count) takes the owner of the next claimed
	// bucket clockwise, so Pick always returns a usable index and each
	// member's share follows its replicas. Walking backwards twice carries
	// that owner across the wrap-around.
	n := len(r.buckets)
	owner := -1
	for step := 2*n - 1; step >= 0; step-- {
		i := step % n
		if r.buckets[i] != -1 {
			owner = r.buckets[i]
		} else if owner != -1 {
			r.buckets[i] = owner
		}
	}

	return r
}

func replicaHash(steady []byte, replica int) uint32 {
	buf := make([]byte, len(steady)+4)
	copy(buf, steady)
	binary.BigEndian.PutUint32(buf[len(steady):], uint32(replica))
	sum := blake2b.Sum256(buf)
	return binary.BigEndian.Uint32(sum[:4])
}

// Pick returns the member index owning bucket h mod len(buckets).
func (r *Ring) Pick(h uint32) int {
	if len(r.buckets) == 0 {
		return -1
	}
	return r.buckets[h%uint32(len(r.buckets))]
}

// FindNext walks forward from h's bucket, wrapping, until it finds a
// bucket whose owner is not in exclude. Returns -1 if every member is
// excluded (spec.md §3 "FindNext(h) walks to the next distinct node").
func (r *Ring) FindNext(h uint32, exclude func(memberIdx int) bool) int {
	n := len(r.buckets)
	if n == 0 {
		return -1
	}
	start := int(h % uint32(n))
	for step := 0; step < n; step++ {
		idx := r.buckets[(start+step)%n]
		if idx >= 0 && !exclude(idx) {
			return idx
		}
	}
	return -1
}

// Members returns the member slice the ring was built from.
func (r *Ring) Members() []Member { return r.members }
