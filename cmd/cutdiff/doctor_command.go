package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cutdiff/internal/deps"
	"cutdiff/internal/preflight"
	"cutdiff/internal/services"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the frame store, external tools and publishing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			statuses := preflight.CheckSystemDeps(cfg)

			lines := renderSectionHeader("Checks", colorize)
			lines = append(lines, checkLines(results, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(statuses, colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			failed := preflight.Failed(results)
			missing := deps.Missing(statuses)
			if len(failed) > 0 || len(missing) > 0 {
				return services.Wrap(services.ErrConfiguration, "doctor", "check",
					fmt.Sprintf("%d check(s) failed, %d tool(s) missing", len(failed), len(missing)), nil)
			}
			return nil
		},
	}
}
