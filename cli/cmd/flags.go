// Package cmd provides CLI commands for the waystation binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands, grounded on
// quarry/cli/cmd/flags.go. waystation drops the teacher's --tui flag:
// the Bubble Tea interactive mode is out of this module's scope
// (DESIGN.md records the dropped dependency).
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag names the waystation.yaml config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to waystation.yaml",
		Value:   "waystation.yaml",
	}
)

// ReadOnlyFlags returns the shared flags for read-only commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}
