package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/waystation/cli/render"
	"github.com/justapithecus/waystation/config"
)

// ClusterSummary is one row of `config list`: thin cluster-level detail,
// not a full inspect-level dump (spec.md §6.2).
type ClusterSummary struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	Sticky   string `json:"sticky"`
	Members  int    `json:"members"`
	Zeroconf bool   `json:"zeroconf"`
}

// ValidateResponse is the response for `config validate`.
type ValidateResponse struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ConfigCommand returns the config command and its subcommands, grounded
// on quarry/cli/cmd/list.go's command-with-subcommands shape.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and validate waystation.yaml",
		Subcommands: []*cli.Command{
			configValidateCommand(),
			configListCommand(),
		},
	}
}

func configValidateCommand() *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "Validate a waystation.yaml config file",
		Flags:  append(ReadOnlyFlags(), ConfigFlag),
		Action: configValidateAction,
	}
}

func configValidateAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	path := c.String("config")
	resp := ValidateResponse{Path: path, Valid: true}

	cfg, err := config.Load(path)
	if err != nil {
		resp.Valid = false
		resp.Error = err.Error()
		if renderErr := r.Render(resp); renderErr != nil {
			return renderErr
		}
		return cli.Exit("", 1)
	}

	if err := cfg.Validate(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
		if renderErr := r.Render(resp); renderErr != nil {
			return renderErr
		}
		return cli.Exit("", 1)
	}

	return r.Render(resp)
}

func configListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List clusters defined in a waystation.yaml config file",
		Flags:  append(ReadOnlyFlags(), ConfigFlag),
		Action: configListAction,
	}
}

func configListAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	summaries := make([]ClusterSummary, 0, len(cfg.Clusters))
	for _, cc := range cfg.ClusterConfigs() {
		summaries = append(summaries, ClusterSummary{
			Name:     cc.Name,
			Protocol: string(cc.Protocol),
			Sticky:   string(cc.Sticky),
			Members:  len(cc.Members),
			Zeroconf: cc.Zeroconf != nil,
		})
	}

	return r.Render(summaries)
}
