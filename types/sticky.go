package types

import "fmt"

// StickyMode selects how a request's sticky hash is derived and how an
// AddressList picks a member for a given sticky hash.
type StickyMode string

const (
	StickyNone          StickyMode = "none"
	StickyFailover      StickyMode = "failover"
	StickySourceIP      StickyMode = "source_ip"
	StickyHost          StickyMode = "host"
	StickyXHost         StickyMode = "xhost"
	StickySessionModulo StickyMode = "session_modulo"
	StickyCookie        StickyMode = "cookie"
	StickyJVMRoute      StickyMode = "jvm_route"
)

// Valid reports whether m is one of the known sticky modes.
func (m StickyMode) Valid() bool {
	switch m {
	case StickyNone, StickyFailover, StickySourceIP, StickyHost, StickyXHost,
		StickySessionModulo, StickyCookie, StickyJVMRoute:
		return true
	default:
		return false
	}
}

// UsesModulo reports whether this sticky mode, given a non-zero hash, is
// dispatched via PickModulo rather than round-robin (spec.md §4.3 Pick).
func (m StickyMode) UsesModulo() bool {
	switch m {
	case StickySourceIP, StickyHost, StickyXHost, StickySessionModulo, StickyCookie, StickyJVMRoute:
		return true
	default:
		return false
	}
}

// StickyHash is a 32-bit sticky-routing hash. Zero means "no sticky
// information available" and always falls back to non-sticky selection.
type StickyHash uint32

// NoSticky is the reserved zero value of StickyHash.
const NoSticky StickyHash = 0

// Combine XORs two sticky hash sources together, per spec.md §3.
func (h StickyHash) Combine(other StickyHash) StickyHash {
	return h ^ other
}

// DJBHash computes the DJB2 hash used by the source/host/session sticky
// derivations (spec.md §4.8).
func DJBHash(data []byte) StickyHash {
	var h uint32 = 5381
	for _, b := range data {
		h = ((h << 5) + h) + uint32(b)
	}
	return StickyHash(h)
}

// AddressList is an immutable ordered sequence of SocketAddress values plus
// the StickyMode used to select among them. Non-empty by construction.
type AddressList struct {
	members []SocketAddress
	sticky  StickyMode
}

// NewAddressList constructs an AddressList. Panics if members is empty,
// since an empty AddressList reaching the selector is a contract violation
// (spec.md §3 invariant) that should be caught at construction, not at pick time.
func NewAddressList(sticky StickyMode, members ...SocketAddress) AddressList {
	if len(members) == 0 {
		panic("types: AddressList must be non-empty")
	}
	cp := make([]SocketAddress, len(members))
	copy(cp, members)
	return AddressList{members: cp, sticky: sticky}
}

// Size returns the number of members.
func (l AddressList) Size() int { return len(l.members) }

// At returns the i'th member.
func (l AddressList) At(i int) SocketAddress { return l.members[i] }

// StickyMode returns the configured sticky mode.
func (l AddressList) StickyMode() StickyMode { return l.sticky }

// All returns a read-only view of the member slice. Callers must not mutate it.
func (l AddressList) All() []SocketAddress { return l.members }

// String renders the list for logging/debugging.
func (l AddressList) String() string {
	return fmt.Sprintf("AddressList(sticky=%s, n=%d)", l.sticky, len(l.members))
}
