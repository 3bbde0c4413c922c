// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/apiai/internal/health"
	"github.com/spf13/cobra"
)

type pingOptions struct {
	event   string
	timeout time.Duration
}

func (a *app) pingCmd() *cobra.Command {
	var o pingOptions
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the agent answers",
		Long: `Triggers one event (WELCOME by default) and reports healthy, degraded or
unhealthy. Exits non-zero only when the agent is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.ping(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVar(&o.event, "event", "WELCOME", "event to trigger")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 10*time.Second, "probe timeout")
	return cmd
}

func (a *app) ping(ctx context.Context, o pingOptions) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	res := health.NewAgentChecker(c, o.event, a.cfg.Language).Check(ctx)
	detail := res.Message
	if res.Error != "" {
		detail = res.Error
	}
	fmt.Fprintf(a.out, "%s %s (%s)\n", res.Status, detail, res.Latency.Round(time.Millisecond))
	if res.Status == health.StatusUnhealthy {
		return fmt.Errorf("agent at %s is unhealthy", c.BaseURL())
	}
	return nil
}
