package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/footage/internal/config"
	indexuc "github.com/kailas-cloud/footage/internal/usecase/index"
)

func newIndexCmd(opts *options) *cobra.Command {
	var (
		scenesPath     string
		transcriptPath string
		recreate       bool
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed and store every clip of the scene corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.build(cmd.Context(), func(c *config.Config) {
				if scenesPath != "" {
					c.Corpus.ScenesPath = scenesPath
				}
				if transcriptPath != "" {
					c.Corpus.TranscriptPath = transcriptPath
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			if len(a.Scenes) == 0 {
				return fmt.Errorf("no scenes found at %q", a.Config.Corpus.ScenesPath)
			}

			clips, _ := indexuc.Clips(a.Scenes)
			var bar *progressbar.ProgressBar
			if !quiet {
				bar = newProgressBar(len(clips), "Indexing clips")
			}

			stats, err := a.Indexer.Index(cmd.Context(), a.Scenes, indexuc.Options{
				Recreate: recreate,
				OnProgress: func(p indexuc.Progress) {
					if bar != nil {
						_ = bar.Set(p.Done)
					}
				},
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d clips from %d scenes in %d batches (%d tokens, %s)\n",
				stats.Clips, stats.Scenes, stats.Batches, stats.Tokens, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&scenesPath, "scenes", "", "scenes JSON file (default corpus.scenes_path)")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "optional subtitle transcript JSON")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop the index and every stored clip first")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable the progress bar")
	return cmd
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("clips"),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
}
