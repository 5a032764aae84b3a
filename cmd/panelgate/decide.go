package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type decideOptions struct {
	path  string
	token string
	role  string
	json  bool
}

type decideOutput struct {
	Path         string `json:"path"`
	Rule         string `json:"rule"`
	Action       string `json:"action"`
	Target       string `json:"target,omitempty"`
	ClearSession bool   `json:"clearSession,omitempty"`
}

func newDecideCmd() *cobra.Command {
	opts := decideOptions{}
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Print the gate decision for a navigation",
		Example: `  panelgate decide --path /dashboard
  panelgate decide --path / --token t --role LEADER`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDecide(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.path, "path", "", "request path")
	cmd.Flags().StringVar(&opts.token, "token", "", "auth-token cookie value (empty means absent)")
	cmd.Flags().StringVar(&opts.role, "role", "", "user-role cookie value (empty means absent)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func runDecide(ctx context.Context, out io.Writer, opts decideOptions) error {
	engine, err := panelGate.New().WithMetricsEnabled(false).Build()
	if err != nil {
		return errors.Wrap(err, "error building gate engine")
	}
	defer engine.Close()

	d := engine.Decide(ctx, opts.path, opts.token, opts.role)
	res := decideOutput{
		Path:         opts.path,
		Rule:         d.Rule.String(),
		Action:       d.Action.String(),
		Target:       d.Target,
		ClearSession: d.ClearSession,
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "%s -> %s (%s)", res.Path, res.Action, res.Rule)
	if res.Target != "" {
		fmt.Fprintf(out, " target=%s", res.Target)
	}
	if res.ClearSession {
		fmt.Fprint(out, " clear-session")
	}
	fmt.Fprintln(out)
	return nil
}
