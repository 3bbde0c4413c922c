// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/apiai"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type batchResult struct {
	query string
	resp  *apiai.Response
	err   error
}

func (a *app) batchCmd() *cobra.Command {
	var (
		file        string
		concurrency int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Send one query per line of a file, concurrently",
		Long: `Reads queries from --file (one per non-empty line, "-" for stdin) and sends
them with at most --concurrency requests in flight. Each line gets its own
session. Results are printed in input order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
			}
			queries, err := a.readQueries(file)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			results := runBatch(cmd.Context(), client, queries, concurrency, a.cfg.Language)
			return a.printBatch(results, asJSON)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file with one query per line")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "maximum requests in flight")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON response per line")
	return cmd
}

func (a *app) readQueries(path string) ([]string, error) {
	var r io.Reader = a.in
	if path != "-" {
		// #nosec G304 -- query files are chosen by the operator
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open query file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			queries = append(queries, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	return queries, nil
}

// runBatch fans the queries out. A failed query does not cancel the others.
func runBatch(ctx context.Context, client *apiai.Client, queries []string, limit int, lang apiai.Language) []batchResult {
	results := make([]batchResult, len(queries))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, q := range queries {
		g.Go(func() error {
			resp, err := client.Ask(ctx, q, apiai.WithLanguage(lang))
			results[i] = batchResult{query: q, resp: resp, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *app) printBatch(results []batchResult, asJSON bool) error {
	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(a.errOut, "error: %q: %v\n", r.query, r.err)
			continue
		}
		if asJSON {
			line, err := json.Marshal(r.resp)
			if err != nil {
				return fmt.Errorf("encode response: %w", err)
			}
			fmt.Fprintf(a.out, "%s\n", line)
			continue
		}
		fmt.Fprintf(a.out, "<<< %s\n>>> %s\n", r.query, r.resp.Result.Fulfillment.Speech)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(results))
	}
	return nil
}
