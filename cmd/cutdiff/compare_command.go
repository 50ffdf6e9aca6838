package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cutdiff/internal/alignment"
	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
	"cutdiff/internal/progress"
	"cutdiff/internal/publish"
	"cutdiff/internal/report"
)

type compareFlags struct {
	labelA    string
	labelB    string
	frameRate float64
	algorithm string
}

func (f *compareFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.labelA, "label-a", "", "Label for the first edition (defaults to its name)")
	cmd.Flags().StringVar(&f.labelB, "label-b", "", "Label for the second edition (defaults to its name)")
	cmd.Flags().Float64Var(&f.frameRate, "frame-rate", 0, "Frame rate for timestamps (defaults to the first edition's rate)")
	cmd.Flags().StringVar(&f.algorithm, "algorithm", "", "Fingerprint algorithm to align on (defaults to alignment.algorithm)")
}

func (f *compareFlags) labels(editionA, editionB string) (string, string) {
	labelA, labelB := strings.TrimSpace(f.labelA), strings.TrimSpace(f.labelB)
	if labelA == "" {
		labelA = editionA
	}
	if labelB == "" {
		labelB = editionB
	}
	return labelA, labelB
}

type comparison struct {
	result  *alignment.Result
	editA   *framestore.Edition
	editB   *framestore.Edition
	options report.Options
}

// newMatchingProgress reports refined anchor pairs on w.
func newMatchingProgress(w io.Writer, logger *slog.Logger) progress.Reporter {
	return progress.New(w, logger, progress.Options{Stage: "matching", Unit: "anchors"})
}

// runComparison aligns two stored editions and loads the chapters used to
// annotate the report.
func runComparison(ctx context.Context, cfg *config.Config, store *framestore.Store, logger *slog.Logger, reporter progress.Reporter, flags *compareFlags, nameA, nameB string) (*comparison, error) {
	editA, err := store.Edition(ctx, nameA)
	if err != nil {
		return nil, err
	}
	editB, err := store.Edition(ctx, nameB)
	if err != nil {
		return nil, err
	}
	policy := alignment.PolicyFromConfig(cfg.Alignment)
	switch {
	case flags.frameRate > 0:
		policy.FrameRate = flags.frameRate
	case editA.FrameRate > 0:
		policy.FrameRate = editA.FrameRate
	}

	subject := editA.Name + " vs " + editB.Name
	comparer := alignment.NewComparer(store, policy, logger)
	comparer.OnProgress(func(done, total int) {
		if done == 1 {
			reporter.Start(subject, int64(total))
		}
		reporter.Add(1)
	})
	result, err := comparer.Compare(ctx, editA.Name, editB.Name)
	reporter.Finish()
	if err != nil {
		return nil, err
	}
	chaptersA, err := store.Chapters(ctx, editA.Name)
	if err != nil {
		return nil, err
	}
	chaptersB, err := store.Chapters(ctx, editB.Name)
	if err != nil {
		return nil, err
	}
	labelA, labelB := flags.labels(editA.Name, editB.Name)
	return &comparison{
		result:  result,
		editA:   editA,
		editB:   editB,
		options: report.Options{
			LabelA:    labelA,
			LabelB:    labelB,
			ChaptersA: chaptersA,
			ChaptersB: chaptersB,
		},
	}, nil
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var flags compareFlags
	var jsonOutput bool
	var entries bool
	var markdown bool
	var publishReport bool

	cmd := &cobra.Command{
		Use:   "compare <edition-a> <edition-b>",
		Short: "Report where two hashed editions diverge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(flags.algorithm, func(cfg *config.Config, store *framestore.Store, logger *slog.Logger) error {
				cmp, err := runComparison(cmd.Context(), cfg, store, logger, newMatchingProgress(cmd.ErrOrStderr(), logger), &flags, args[0], args[1])
				if err != nil {
					return err
				}
				cmp.options.Markdown = markdown
				doc := report.NewDocument(cmp.result, cmp.options)

				out := cmd.OutOrStdout()
				switch {
				case jsonOutput:
					if err := writeJSON(cmd, doc); err != nil {
						return err
					}
				default:
					fmt.Fprintf(out, "Compared %s and %s: %s anchors\n\n",
						cmp.editA.Name, cmp.editB.Name, humanize.Comma(int64(len(cmp.result.Anchors))))
					if err := report.WriteTable(out, cmp.result, cmp.options); err != nil {
						return err
					}
					if entries {
						fmt.Fprintln(out)
						if err := report.WriteEntries(out, cmp.result); err != nil {
							return err
						}
					}
				}

				if publishReport {
					return publishDocument(cmd, cfg, logger, doc)
				}
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full report as JSON")
	cmd.Flags().BoolVar(&entries, "entries", false, "Also print one JSON array of ranges per edition")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render the table as GitHub markdown")
	cmd.Flags().BoolVar(&publishReport, "publish", false, "Upload the JSON report to the configured object store")
	return cmd
}

func publishDocument(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, doc report.Document) error {
	publisher, err := publish.New(cfg.ObjectStore, logger)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.WriteDocument(&buf, doc); err != nil {
		return err
	}
	name := fmt.Sprintf("reports/%s-vs-%s-%s.json", doc.EditionA, doc.EditionB, doc.RunID)
	key, err := publisher.PutBytes(cmd.Context(), name, buf.Bytes(), publish.ContentTypeJSON)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Published report to s3://%s/%s\n", cfg.ObjectStore.Bucket, key)
	return nil
}
