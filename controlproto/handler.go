package controlproto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/justapithecus/waystation/failure"
	"github.com/justapithecus/waystation/monitor"
	"github.com/justapithecus/waystation/types"
)

// Handler applies decoded commands to a shared FailureManager (spec.md
// §6.1): ENABLE_NODE/DISABLE_NODE/FADE_NODE let an operator mark a node's
// status out-of-band without restarting the worker. NOP and STATS are
// accepted but mutate nothing; TILE_INVALIDATE is out of scope for this
// backend-selection engine (it targets an HTTP response cache this repo
// does not implement) and is accepted as a no-op for protocol
// compatibility with other control-plane senders.
type Handler struct {
	manager *failure.Manager
}

// NewHandler builds a Handler bound to manager.
func NewHandler(manager *failure.Manager) *Handler {
	return &Handler{manager: manager}
}

// Result reports the outcome of applying one command.
type Result struct {
	Op  Op
	Err error
}

// Dispatch applies every command in cmds in order and reports per-command
// results; a failure in one command does not stop the rest from applying.
func (h *Handler) Dispatch(now time.Time, cmds []Command) []Result {
	results := make([]Result, len(cmds))
	for i, cmd := range cmds {
		results[i] = Result{Op: cmd.Op, Err: h.apply(now, cmd)}
	}
	return results
}

func (h *Handler) apply(now time.Time, cmd Command) error {
	switch cmd.Op {
	case OpNop, OpStats, OpTileInvalidate:
		return nil

	case OpEnableNode:
		addr, err := ParseAddressPayload(cmd.Payload)
		if err != nil {
			return fmt.Errorf("enable_node: %w", err)
		}
		info := h.manager.Make(addr)
		info.Unset(types.FailureMonitor)
		info.Unset(types.FailureFade)
		return nil

	case OpDisableNode:
		addr, err := ParseAddressPayload(cmd.Payload)
		if err != nil {
			return fmt.Errorf("disable_node: %w", err)
		}
		info := h.manager.Make(addr)
		info.Set(types.FailureMonitor, now, 0) // 0 = persistent until re-enabled
		return nil

	case OpFadeNode:
		addr, err := ParseAddressPayload(cmd.Payload)
		if err != nil {
			return fmt.Errorf("fade_node: %w", err)
		}
		info := h.manager.Make(addr)
		info.Set(types.FailureFade, now, monitor.FadeDuration)
		return nil

	default:
		return fmt.Errorf("unknown control command: %d", cmd.Op)
	}
}

// ParseAddressPayload parses a command payload naming a node back into a
// SocketAddress. The format mirrors SocketAddress.String(): "ip:port" for
// inet addresses, "unix:path" for UNIX-domain ones.
func ParseAddressPayload(payload []byte) (types.SocketAddress, error) {
	s := string(payload)

	if path, ok := strings.CutPrefix(s, "unix:"); ok {
		if path == "" {
			return types.SocketAddress{}, fmt.Errorf("empty unix path in payload %q", s)
		}
		return types.NewLocalAddress(path), nil
	}

	host, portStr, ok := strings.Cut(s, ":")
	if !ok {
		return types.SocketAddress{}, fmt.Errorf("malformed address payload %q (expected ip:port or unix:path)", s)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return types.SocketAddress{}, fmt.Errorf("malformed port in payload %q: %w", s, err)
	}

	addr, err := parseIP(host)
	if err != nil {
		return types.SocketAddress{}, fmt.Errorf("malformed address in payload %q: %w", s, err)
	}
	return types.NewInetAddress(addr, uint16(port)), nil
}
