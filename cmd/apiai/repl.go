// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/ManuGH/apiai"
	"github.com/spf13/cobra"
)

func (a *app) replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive conversation, one session per run",
		Args:  cobra.NoArgs,
		RunE:  a.runREPL,
	}
}

// runREPL reads one line per turn and prints the agent's speech. Failed turns
// are reported and the loop continues with the same session.
func (a *app) runREPL(cmd *cobra.Command, _ []string) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	session := apiai.NewSessionID()

	fmt.Fprintln(a.out, "API.AI Demo (press Ctrl-D to quit)...")
	sc := bufio.NewScanner(a.in)
	for {
		fmt.Fprint(a.out, "<<< ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		resp, err := client.Ask(ctx, line, apiai.WithSessionID(session), apiai.WithLanguage(a.cfg.Language))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(a.errOut, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(a.out, ">>> %s\n", resp.Result.Fulfillment.Speech)
	}
	fmt.Fprintln(a.out)
	return sc.Err()
}
