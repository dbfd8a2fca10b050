package controlproto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeParseDatagram_RoundTrips(t *testing.T) {
	cmds := []Command{
		{Op: OpNop},
		{Op: OpEnableNode, Payload: []byte("10.0.0.1:80")},
		{Op: OpFadeNode, Payload: []byte("unix:/tmp/a.sock")},
	}

	buf, err := EncodeDatagram(cmds)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseDatagram(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(got))
	}
	for i, c := range got {
		if c.Op != cmds[i].Op {
			t.Fatalf("command %d: op = %v, want %v", i, c.Op, cmds[i].Op)
		}
		if !bytes.Equal(c.Payload, cmds[i].Payload) {
			t.Fatalf("command %d: payload = %q, want %q", i, c.Payload, cmds[i].Payload)
		}
	}
}

func TestParseDatagram_RejectsBadMagic(t *testing.T) {
	buf := []byte{0, 0, 0, 0}
	_, err := ParseDatagram(buf)
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestParseDatagram_RejectsUnpaddedTotalLength(t *testing.T) {
	buf, err := EncodeDatagram([]Command{{Op: OpNop}})
	if err != nil {
		t.Fatal(err)
	}
	buf = append(buf, 0x01) // break 4-byte alignment

	_, err = ParseDatagram(buf)
	if !errors.Is(err, ErrUnpadded) {
		t.Fatalf("expected ErrUnpadded, got %v", err)
	}
}

func TestParseDatagram_RejectsShorterThanMagic(t *testing.T) {
	_, err := ParseDatagram([]byte{0x57, 0x41})
	if !errors.Is(err, ErrPartialHeader) {
		t.Fatalf("expected ErrPartialHeader, got %v", err)
	}
}

func TestParseDatagram_RejectsPartialPayload(t *testing.T) {
	buf, err := EncodeDatagram([]Command{{Op: OpEnableNode, Payload: []byte("10.0.0.1:8080")}})
	if err != nil {
		t.Fatal(err)
	}
	buf = buf[:len(buf)-4] // truncate the last padded word of the payload

	_, err = ParseDatagram(buf)
	if !errors.Is(err, ErrPartialPayload) {
		t.Fatalf("expected ErrPartialPayload, got %v", err)
	}
}

func TestEncodeDatagram_RejectsOversizedPayload(t *testing.T) {
	_, err := EncodeDatagram([]Command{{Op: OpStats, Payload: make([]byte, 1<<16)}})
	if err == nil {
		t.Fatal("expected an error for an oversized payload")
	}
}
