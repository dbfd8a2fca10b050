package types

import "time"

// FailureStatus is the severity of a node's failure state, ordered least to
// most severe: OK < Fade < Protocol < Connect < Monitor (spec.md §3).
type FailureStatus int

const (
	FailureOK FailureStatus = iota
	FailureFade
	FailureProtocol
	FailureConnect
	FailureMonitor
)

func (s FailureStatus) String() string {
	switch s {
	case FailureOK:
		return "ok"
	case FailureFade:
		return "fade"
	case FailureProtocol:
		return "protocol"
	case FailureConnect:
		return "connect"
	case FailureMonitor:
		return "monitor"
	default:
		return "unknown"
	}
}

// DefaultProtocolThreshold is the number of protocol errors that must
// accumulate before FailureProtocol is reported active (spec.md §4.1, §9).
const DefaultProtocolThreshold = 8

// DefaultConnectFailureDuration is how long a CONNECT failure is marked for
// by BalancerRequest on a failed attempt (spec.md §4.5, §7).
const DefaultConnectFailureDuration = 20 * time.Second
