package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/lochistory/internal/datestr"
	"github.com/spf13/cobra"
)

var shiftCmd = &cobra.Command{
	Use:   "shift <date>",
	Short: "Print the date one year, month or day before or after <date>",
	Long: `Shift moves a YYYY, YYYY-MM or YYYY-MM-DD string by --by units of its own
granularity, rolling over month and year boundaries.`,
	Example: `  lochistory shift 2025-12-31          # 2026-01-01
  lochistory shift 2025-01 --by -1     # 2024-12`,
	Args: cobra.ExactArgs(1),
	RunE: runShift,
}

func init() {
	rootCmd.AddCommand(shiftCmd)

	shiftCmd.Flags().Int("by", 1, "Number of units to shift (negative moves back)")
}

func runShift(cmd *cobra.Command, args []string) error {
	by, err := cmd.Flags().GetInt("by")
	if err != nil {
		return err
	}

	shifted, err := datestr.Shift(args[0], by)
	if err != nil {
		return fmt.Errorf("failed to shift %q: %w", args[0], err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), shifted)
	return err
}
