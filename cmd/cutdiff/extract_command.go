package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cutdiff/internal/clips"
	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
	"cutdiff/internal/media/ffmpeg"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var flags compareFlags
	var sourceA, sourceB string
	var outputDir string
	var padding float64
	var noClips, noStills bool

	cmd := &cobra.Command{
		Use:   "extract <edition-a> <edition-b>",
		Short: "Cut clips and stills around every difference for review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(flags.algorithm, func(cfg *config.Config, store *framestore.Store, logger *slog.Logger) error {
				cmp, err := runComparison(cmd.Context(), cfg, store, logger, newMatchingProgress(cmd.ErrOrStderr(), logger), &flags, args[0], args[1])
				if err != nil {
					return err
				}
				opts := clips.Options{
					OutputDir:  cfg.Paths.OutputDir,
					Padding:    time.Duration(cfg.Extraction.PaddingSeconds) * time.Second,
					TrimVideos: cfg.Extraction.TrimVideos && !noClips,
					GrabFrames: cfg.Extraction.GrabFrames && !noStills,
				}
				if strings.TrimSpace(outputDir) != "" {
					opts.OutputDir = outputDir
				}
				if cmd.Flags().Changed("padding") {
					opts.Padding = time.Duration(padding * float64(time.Second))
				}
				a := clips.Source{Label: cmp.options.LabelA, Path: firstNonEmpty(sourceA, cmp.editA.Source)}
				b := clips.Source{Label: cmp.options.LabelB, Path: firstNonEmpty(sourceB, cmp.editB.Source)}

				extractor := clips.NewExtractor(ffmpeg.New(cfg.FFmpegBinary()), logger)
				summary, err := extractor.Extract(cmd.Context(), cmp.result.Differences, a, b, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d differences: wrote %d files, kept %d existing in %s\n",
					len(cmp.result.Differences), len(summary.Written), len(summary.Skipped), opts.OutputDir)
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&sourceA, "source-a", "", "Video for the first edition (defaults to the hashed file)")
	cmd.Flags().StringVar(&sourceB, "source-b", "", "Video for the second edition (defaults to the hashed file)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to paths.output_dir)")
	cmd.Flags().Float64Var(&padding, "padding", 0, "Seconds of context around each clip (defaults to extraction.padding_seconds)")
	cmd.Flags().BoolVar(&noClips, "no-clips", false, "Skip cutting clips")
	cmd.Flags().BoolVar(&noStills, "no-stills", false, "Skip grabbing still frames")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
