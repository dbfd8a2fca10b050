// Package addrlist wraps a types.AddressList with a failure.Manager so it
// satisfies selector.List, mirroring the source's AddressListWrapper.hxx:
// a thin adapter that lets the generic selector primitives consult
// per-member health without themselves depending on the failure package.
package addrlist

import (
	"time"

	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/hashring"
	"github.com/justapithecus/waystation/types"
)

// Wrapper adapts a types.AddressList for use with package selector.
type Wrapper struct {
	List    types.AddressList
	Manager *failure.Manager
}

// New constructs a Wrapper.
func New(list types.AddressList, manager *failure.Manager) Wrapper {
	return Wrapper{List: list, Manager: manager}
}

// Size implements selector.List.
func (w Wrapper) Size() int { return w.List.Size() }

// Check implements selector.List by consulting the FailureManager for the
// member at idx.
func (w Wrapper) Check(now time.Time, idx int, allowFade bool) bool {
	return w.Manager.Check(now, w.List.At(idx), allowFade)
}

// At returns the SocketAddress at idx.
func (w Wrapper) At(idx int) types.SocketAddress { return w.List.At(idx) }

// addrMember adapts a types.SocketAddress for package hashring.
type addrMember struct{ addr types.SocketAddress }

func (m addrMember) SteadyPart() []byte { return m.addr.SteadyPart() }

// Members returns the address list as hashring.Member values, in order.
func (w Wrapper) Members() []hashring.Member {
	out := make([]hashring.Member, w.List.Size())
	for i := range out {
		out[i] = addrMember{w.List.At(i)}
	}
	return out
}
