// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuGH/apiai"
	applog "github.com/ManuGH/apiai/internal/log"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
)

// outputFlags controls how a single response is rendered.
type outputFlags struct {
	json    bool
	out     string
	session string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "print the full response as JSON")
	cmd.Flags().StringVar(&o.out, "out", "", "also write the full response as JSON to this file")
	cmd.Flags().StringVar(&o.session, "session", "", "session id to continue (default: new session)")
}

func (a *app) queryCmd() *cobra.Command {
	var o outputFlags
	cmd := &cobra.Command{
		Use:   "query <text...>",
		Short: "Send one text query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := apiai.NewQueryRequest(strings.Join(args, " "), a.requestOptions(o)...)
			return a.send(cmd, req, o)
		},
	}
	o.register(cmd)
	return cmd
}

func (a *app) eventCmd() *cobra.Command {
	var o outputFlags
	cmd := &cobra.Command{
		Use:   "event <name> [key=value...]",
		Short: "Trigger an intent by event name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := apiai.Event{Name: args[0]}
			if len(args) > 1 {
				data, err := parseEventData(args[1:])
				if err != nil {
					return err
				}
				ev.Data = data
			}
			return a.send(cmd, apiai.NewEventRequest(ev, a.requestOptions(o)...), o)
		},
	}
	o.register(cmd)
	return cmd
}

func parseEventData(pairs []string) (map[string]string, error) {
	data := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid event parameter %q (want key=value)", p)
		}
		data[k] = v
	}
	return data, nil
}

func (a *app) requestOptions(o outputFlags) []apiai.RequestOption {
	return []apiai.RequestOption{
		apiai.WithLanguage(a.cfg.Language),
		apiai.WithSessionID(o.session),
	}
}

func (a *app) send(cmd *cobra.Command, req apiai.Request, o outputFlags) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	resp, err := client.Query(cmd.Context(), req)
	if err != nil {
		return err
	}

	if o.json || o.out != "" {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		data = append(data, '\n')
		if o.out != "" {
			if err := writeFileAtomic(o.out, data); err != nil {
				return err
			}
			a.logger.Debug().Str(applog.FieldPath, o.out).Msg("response written")
		}
		if o.json {
			_, err = a.out.Write(data)
			return err
		}
	}

	fmt.Fprintln(a.out, resp.Result.Fulfillment.Speech)
	return resp.Status.Err()
}

// writeFileAtomic replaces path with data via temp file, fsync and rename.
func writeFileAtomic(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
