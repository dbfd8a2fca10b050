package monitor

import (
	"context"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// DefaultPingTimeout is the default ICMP echo round-trip timeout.
const DefaultPingTimeout = 5 * time.Second

// PingProber sends an ICMP echo request and waits for a reply
// (spec.md §4.7 "Ping monitor"). Requires CAP_NET_RAW or an unprivileged
// ICMP datagram socket (net.ListenPacket("udp4", ...) on Linux with
// net.ipv4.ping_group_range configured); falls back to OutcomeError if
// neither is available.
type PingProber struct {
	Timeout time.Duration
	id      int
}

// NewPingProber constructs a PingProber, defaulting Timeout to
// DefaultPingTimeout.
func NewPingProber(timeout time.Duration) *PingProber {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &PingProber{Timeout: timeout, id: os.Getpid() & 0xffff}
}

// Probe ignores the network argument (always ICMP) and treats addr as a
// bare host (no port).
func (p *PingProber) Probe(ctx context.Context, _, addr string) Outcome {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr // already bare
	}

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return OutcomeError
	}
	defer conn.Close()

	dst, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return OutcomeError
	}

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  1,
			Data: []byte("waystation-monitor"),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return OutcomeError
	}

	deadline := time.Now().Add(p.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.WriteTo(wb, dst); err != nil {
		return OutcomeError
	}

	rb := make([]byte, 1500)
	n, _, err := conn.ReadFrom(rb)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return OutcomeTimeout
		}
		return OutcomeError
	}

	reply, err := icmp.ParseMessage(1 /* ipv4.ICMPTypeEchoReply protocol number */, rb[:n])
	if err != nil {
		return OutcomeError
	}
	if reply.Type != ipv4.ICMPTypeEchoReply {
		return OutcomeError
	}
	return OutcomeSuccess
}
