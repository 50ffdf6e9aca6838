package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"cutdiff/internal/alignment"
	"cutdiff/internal/chapters"
	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
)

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	chaptersCmd := &cobra.Command{
		Use:   "chapters",
		Short: "Manage chapter markers used to annotate reports",
	}
	chaptersCmd.AddCommand(newChaptersImportCommand(ctx))
	chaptersCmd.AddCommand(newChaptersListCommand(ctx))
	return chaptersCmd
}

func newChaptersImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <edition> <chapters.xml>",
		Short: "Import Matroska chapter XML for an edition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := chapters.ParseFile(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore("", func(_ *config.Config, store *framestore.Store, _ *slog.Logger) error {
				unlock, err := store.Lock(cmd.Context())
				if err != nil {
					return err
				}
				defer unlock()
				if err := store.ReplaceChapters(cmd.Context(), args[0], list); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d chapters for %s\n", len(list), args[0])
				return nil
			})
		},
	}
}

func newChaptersListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list <edition>",
		Short: "List an edition's chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore("", func(_ *config.Config, store *framestore.Store, _ *slog.Logger) error {
				list, err := store.Chapters(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					type chapterJSON struct {
						Number int    `json:"number"`
						Start  string `json:"start"`
						Title  string `json:"title"`
					}
					out := make([]chapterJSON, 0, len(list))
					for i, chapter := range list {
						out = append(out, chapterJSON{Number: i + 1, Start: alignment.FormatTimestamp(chapter.Start), Title: chapter.Title})
					}
					return writeJSON(cmd, out)
				}
				if len(list) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No chapters for %s\n", args[0])
					return nil
				}
				rows := make([][]string, 0, len(list))
				for i, chapter := range list {
					rows = append(rows, []string{fmt.Sprintf("%02d", i+1), alignment.FormatTimestamp(chapter.Start), chapter.Title})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Start", "Title"}, rows,
					[]columnAlignment{alignRight, alignRight, alignLeft}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print chapters as JSON")
	return cmd
}
