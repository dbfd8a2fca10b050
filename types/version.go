package types

// Version is the canonical project version, shared by the CLI and the
// control-plane protocol's version handshake.
const Version = "0.1.0"
