package cmd

import (
	"fmt"
	"net"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/waystation/controlproto"
)

// ControlAddrFlag names the running worker's UDP control-plane listener,
// matching config.ControlConfig.Listen.
var ControlAddrFlag = &cli.StringFlag{
	Name:    "control-addr",
	Aliases: []string{"a"},
	Usage:   "Running worker's control-plane UDP address (host:port)",
	Value:   "127.0.0.1:9000",
}

// ControlCommand sends ENABLE_NODE/DISABLE_NODE/FADE_NODE datagrams to a
// running worker's control-plane listener (spec.md §6, §6.1), grounded on
// quarry/cli/cmd/debug.go's operator-utility-subcommand shape. Sending is
// fire-and-forget: controlproto carries no response channel, matching
// controlproto.Handler's STATS op being a no-op rather than a query.
func ControlCommand() *cli.Command {
	return &cli.Command{
		Name:  "control",
		Usage: "Send a control-plane command to a running worker",
		Subcommands: []*cli.Command{
			controlNodeCommand("enable", controlproto.OpEnableNode),
			controlNodeCommand("disable", controlproto.OpDisableNode),
			controlNodeCommand("fade", controlproto.OpFadeNode),
		},
	}
}

func controlNodeCommand(name string, op controlproto.Op) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: fmt.Sprintf("%s a node (ip:port or unix:path)", name),
		Flags: []cli.Flag{ControlAddrFlag},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one node address argument", 1)
			}
			return sendControlCommand(c.String("control-addr"), op, c.Args().First())
		},
	}
}

func sendControlCommand(controlAddr string, op controlproto.Op, payload string) error {
	datagram, err := controlproto.EncodeDatagram([]controlproto.Command{
		{Op: op, Payload: []byte(payload)},
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	addr, err := net.ResolveUDPAddr("udp", controlAddr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer conn.Close()

	if _, err := conn.Write(datagram); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
