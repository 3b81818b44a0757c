package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/footage/internal/config"
	"github.com/kailas-cloud/footage/internal/domain/search/request"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/footage/internal/usecase/search"
)

func newSearchCmd(opts *options) *cobra.Command {
	var (
		limit  int
		stream bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run the search pipeline in-process",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.build(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Config.Database.Driver == config.DriverMemory {
				if err := a.IndexCorpusIfEmpty(ctx); err != nil {
					return err
				}
			}

			query := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			var results []result.Ranked
			if stream {
				for ev := range a.Search.Stream(ctx, query, limit) {
					printEvent(out, ev)
					switch ev.Kind {
					case searchuc.EventResults:
						results = ev.Results
					case searchuc.EventError:
						return ev.Err
					}
				}
			} else {
				results, err = a.Search.Search(ctx, query, limit)
				if err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			printResults(out, results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", request.DefaultLimit, "maximum results (1-20)")
	cmd.Flags().BoolVar(&stream, "stream", false, "print pipeline progress events")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func printEvent(w io.Writer, ev searchuc.Event) {
	switch ev.Kind {
	case searchuc.EventStatus:
		fmt.Fprintf(w, "[%-13s %-7s] %s\n", ev.Stage, ev.Status, ev.Message)
		if ev.Parsed != nil {
			fmt.Fprintf(w, "  intent: %s\n", ev.Parsed.Intent)
			if !ev.Parsed.Filters.IsEmpty() {
				fmt.Fprintf(w, "  filters: %s\n", ev.Parsed.Filters)
			}
		}
	case searchuc.EventError:
		fmt.Fprintf(w, "[error] %v\n", ev.Err)
	case searchuc.EventResults:
		fmt.Fprintf(w, "[results] %d clips\n", len(ev.Results))
	}
}

func printResults(w io.Writer, results []result.Ranked) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching clips.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCLIP\tSCENE\tTIME\tSCORE\tCONFIDENCE\tSNIPPET")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s-%s\t%.3f\t%s\t%s\n",
			i+1, r.ClipID, r.SceneID, r.StartDisplay, r.EndDisplay, r.Score, r.Confidence, r.Snippet)
	}
	_ = tw.Flush()
}
