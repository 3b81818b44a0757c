package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/repository/scenefile"
)

func newVocabularyCmd(opts *options) *cobra.Command {
	var scenesPath string

	cmd := &cobra.Command{
		Use:   "vocabulary",
		Short: "Print the canonical filter values offered to query understanding",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if scenesPath == "" {
				scenesPath = cfg.Corpus.ScenesPath
			}
			scenes, err := scenefile.LoadAll(scenesPath, cfg.Corpus.TranscriptPath, cfg.Corpus.LinesPerClip)
			if err != nil {
				return err
			}

			vocab := clip.BuildVocabulary(scenes)
			out := cmd.OutOrStdout()
			for _, f := range filter.Fields {
				values := vocab.Values(f, 0)
				fmt.Fprintf(out, "%s (%d): %s\n", f, len(values), strings.Join(values, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scenesPath, "scenes", "", "scenes JSON file (default corpus.scenes_path)")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the number of indexed clips",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.build(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Clips.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "driver: %s\nindexed clips: %d\n", a.Config.Database.Driver, n)
			return nil
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <clip_id>...",
		Short: "Remove clips from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.build(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var missing int
			for _, id := range args {
				err := a.Clips.Delete(cmd.Context(), id)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					missing++
					fmt.Fprintf(out, "%s: not found\n", id)
				case err != nil:
					return err
				default:
					fmt.Fprintf(out, "%s: deleted\n", id)
				}
			}
			if missing > 0 {
				return fmt.Errorf("%d of %d clips not found", missing, len(args))
			}
			return nil
		},
	}
}

func newDropCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the clip index and every stored clip",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.build(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Clips.Drop(cmd.Context()); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "Index does not exist.")
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Index dropped.")
			return nil
		},
	}
}
