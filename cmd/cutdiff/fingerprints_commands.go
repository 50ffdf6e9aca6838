package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cutdiff/internal/archive"
	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
	"cutdiff/internal/publish"
)

func newFingerprintsCommand(ctx *commandContext) *cobra.Command {
	fingerprintsCmd := &cobra.Command{
		Use:   "fingerprints",
		Short: "Move hashed editions between stores",
	}
	fingerprintsCmd.AddCommand(newFingerprintsExportCommand(ctx))
	fingerprintsCmd.AddCommand(newFingerprintsImportCommand(ctx))
	return fingerprintsCmd
}

func newFingerprintsExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var publishArchive bool

	cmd := &cobra.Command{
		Use:   "export <edition>",
		Short: "Write an edition to a compressed fingerprint archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore("", func(cfg *config.Config, store *framestore.Store, logger *slog.Logger) error {
				name, err := framestore.NormalizeEdition(args[0])
				if err != nil {
					return err
				}
				target := strings.TrimSpace(output)
				if target == "" {
					target = filepath.Join(cfg.Paths.OutputDir, name+".ndjson.zst")
				}
				header, err := archive.ExportFile(cmd.Context(), store, name, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s frames of %s to %s\n",
					humanize.Comma(int64(header.FrameCount)), header.Edition, target)
				if !publishArchive {
					return nil
				}
				publisher, err := publish.New(cfg.ObjectStore, logger)
				if err != nil {
					return err
				}
				key, err := publisher.PutFile(cmd.Context(), "fingerprints/"+filepath.Base(target), target, publish.ContentTypeArchive)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Published archive to s3://%s/%s\n", cfg.ObjectStore.Bucket, key)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (defaults to <output_dir>/<edition>.ndjson.zst)")
	cmd.Flags().BoolVar(&publishArchive, "publish", false, "Upload the archive to the configured object store")
	return cmd
}

func newFingerprintsImportCommand(ctx *commandContext) *cobra.Command {
	var rename string
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <archive>",
		Short: "Load an edition from a fingerprint archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore("", func(_ *config.Config, store *framestore.Store, _ *slog.Logger) error {
				edition, err := archive.ImportFile(cmd.Context(), store, args[0], archive.ImportOptions{Rename: rename, Replace: replace})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s frames into edition %s\n",
					humanize.Comma(int64(edition.FrameCount)), edition.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rename, "as", "", "Store the edition under a different name")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace an existing edition with the same name")
	return cmd
}
