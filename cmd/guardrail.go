package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/timesgrid/internal/mastery"
)

var guardrailCmd = &cobra.Command{
	Use:   "guardrail <email> <1-5|1-9|1-12>",
	Short: "Set a student's working range",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gr, err := mastery.ParseGuardrail(args[1])
		if err != nil {
			return err
		}
		grade, _ := cmd.Flags().GetString("grade")

		rt, err := openRuntime(cmd, runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		progress := rt.store.ProgressRepo()
		data, err := progress.GetMathProgress(ctx, args[0], grade)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if err := progress.SetMathGuardrail(ctx, data.StudentID, string(gr)); err != nil {
			return fmt.Errorf("set guardrail: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: working range %s -> %s\n", args[0], data.Guardrail, gr)
		return nil
	},
}
