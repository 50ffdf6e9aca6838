package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
	"cutdiff/internal/hashing"
)

func newHashCommand(ctx *commandContext) *cobra.Command {
	var edition string
	var replace bool
	var frameRate float64

	cmd := &cobra.Command{
		Use:   "hash <video>",
		Short: "Fingerprint every frame of a video into the frame store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore("", func(cfg *config.Config, store *framestore.Store, logger *slog.Logger) error {
				name := strings.TrimSpace(edition)
				if name == "" {
					name = editionFromPath(args[0])
				}
				pipeline := hashing.NewPipeline(cfg, store, logger,
					hashing.WithProgress(hashing.NewProgress(os.Stderr, logger)),
				)
				summary, err := pipeline.Run(cmd.Context(), hashing.Options{
					Edition:   name,
					Source:    args[0],
					FrameRate: frameRate,
					Replace:   replace,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Hashed %s frames of %s into edition %s (%s fps, %s)\n",
					humanize.Comma(int64(summary.Frames)), summary.Source, summary.Edition,
					formatFrameRate(summary.FrameRate), strings.Join(summary.Algorithms, ", "))
				if summary.Chapters > 0 {
					fmt.Fprintf(out, "Imported %d chapters from the container\n", summary.Chapters)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&edition, "edition", "e", "", "Edition name (defaults to the file name)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace an existing edition with the same name")
	cmd.Flags().Float64Var(&frameRate, "frame-rate", 0, "Override the probed frame rate")
	return cmd
}
