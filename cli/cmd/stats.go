package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/waystation/cli/render"
)

// DebugFlag names the running worker's debug HTTP endpoint, matching
// config.DebugConfig.Listen.
var DebugFlag = &cli.StringFlag{
	Name:    "debug-addr",
	Aliases: []string{"a"},
	Usage:   "Running worker's debug endpoint (host:port)",
	Value:   "127.0.0.1:9100",
}

// StatsCommand queries a running worker's metrics snapshot (SPEC_FULL.md
// §2 "cli" row: "stats"), grounded on quarry/cli/cmd/stats.go's
// query-and-render shape, re-pointed at an HTTP debug endpoint since
// waystation's control-plane protocol carries no response channel
// (controlproto.Handler's STATS op is a fire-and-forget no-op).
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show metrics counters from a running worker",
		Flags:  append(ReadOnlyFlags(), DebugFlag),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	var snapshot any
	if err := fetchJSON(c.String("debug-addr"), "/stats", &snapshot); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return r.Render(snapshot)
}

// InspectCommand queries a running worker's cluster/node status
// (SPEC_FULL.md §2 "cli" row: "inspect").
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:   "inspect",
		Usage:  "Show live cluster and node status from a running worker",
		Flags:  append(ReadOnlyFlags(), DebugFlag),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	var clusters any
	if err := fetchJSON(c.String("debug-addr"), "/clusters", &clusters); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return r.Render(clusters)
}

func fetchJSON(addr, path string, out any) error {
	url := fmt.Sprintf("http://%s%s", addr, path)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("contacting worker at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("worker at %s returned status %d", addr, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
