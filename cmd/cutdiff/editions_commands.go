package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cutdiff/internal/alignment"
	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
)

func newEditionsCommand(ctx *commandContext) *cobra.Command {
	editionsCmd := &cobra.Command{
		Use:   "editions",
		Short: "Inspect and remove hashed editions",
	}
	editionsCmd.AddCommand(newEditionsListCommand(ctx))
	editionsCmd.AddCommand(newEditionsRemoveCommand(ctx))
	return editionsCmd
}

type editionJSON struct {
	Name       string   `json:"name"`
	Source     string   `json:"source"`
	FrameRate  float64  `json:"frame_rate"`
	FrameCount int      `json:"frame_count"`
	Runtime    string   `json:"runtime"`
	Algorithms []string `json:"algorithms"`
	CreatedAt  string   `json:"created_at"`
}

func newEditionsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hashed editions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore("", func(_ *config.Config, store *framestore.Store, _ *slog.Logger) error {
				editions, err := store.Editions(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					out := make([]editionJSON, 0, len(editions))
					for _, e := range editions {
						out = append(out, editionJSON{
							Name:       e.Name,
							Source:     e.Source,
							FrameRate:  e.FrameRate,
							FrameCount: e.FrameCount,
							Runtime:    alignment.FormatTimestamp(alignment.FrameTime(e.FrameCount, e.FrameRate)),
							Algorithms: e.Algorithms,
							CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
						})
					}
					return writeJSON(cmd, out)
				}
				if len(editions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No editions hashed yet")
					return nil
				}
				rows := make([][]string, 0, len(editions))
				for _, e := range editions {
					rows = append(rows, []string{
						e.Name,
						humanize.Comma(int64(e.FrameCount)),
						formatFrameRate(e.FrameRate),
						alignment.FormatTimestamp(alignment.FrameTime(e.FrameCount, e.FrameRate)),
						yesNo(e.HasAlgorithm(store.Algorithm())),
						strings.Join(e.Algorithms, ", "),
						e.Source,
						humanize.Time(e.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Edition", "Frames", "FPS", "Runtime", "Comparable", "Algorithms", "Source", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print editions as JSON")
	return cmd
}

func newEditionsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <edition>...",
		Short: "Remove editions with their frames and chapters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore("", func(_ *config.Config, store *framestore.Store, _ *slog.Logger) error {
				unlock, err := store.Lock(cmd.Context())
				if err != nil {
					return err
				}
				defer unlock()
				for _, name := range args {
					if err := store.DeleteEdition(cmd.Context(), name); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
				}
				return nil
			})
		},
	}
}
