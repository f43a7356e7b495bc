package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/timesgrid/internal/advisor"
	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/mastery"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a student's mastery grid and analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := student(cmd)
		if err != nil {
			return err
		}
		narrate, _ := cmd.Flags().GetBool("narrate")

		rt, err := openRuntime(cmd, runtimeOptions{narrate: narrate})
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		data, err := rt.store.ProgressRepo().GetMathProgress(ctx, st.Email, st.GradeLevel)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		prog, err := mastery.FromProgressData(data)
		if err != nil {
			return err
		}
		review, err := rt.advisor.Review(ctx, st.Email, st.GradeLevel)
		if err != nil {
			return fmt.Errorf("review: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  (grade %s, id %s)\n\n", prog.Email, prog.GradeLevel, prog.StudentID)
		writeGrid(out, prog)
		fmt.Fprintln(out)
		writeReview(out, review)
		if narrate && review.Note == nil {
			fmt.Fprintln(out, "\nNo coach note: configure an LLM provider to enable narration.")
		}
		return nil
	},
}

// writeGrid prints the grid with one symbol per cell: # mastered,
// x missed last time, . not mastered, blank locked.
func writeGrid(w io.Writer, p *mastery.Progress) {
	fmt.Fprint(w, "   ×")
	for n := 1; n <= facts.MaxFactor; n++ {
		fmt.Fprintf(w, "%3d", n)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "    "+strings.Repeat("─", 3*facts.MaxFactor))

	for m := 1; m <= facts.MaxFactor; m++ {
		fmt.Fprintf(w, "%3d│", m)
		for n := 1; n <= facts.MaxFactor; n++ {
			fmt.Fprintf(w, "%3s", cellSymbol(p.Grid.Cell(facts.New(m, n))))
		}
		fmt.Fprintln(w)
	}

	c := mastery.Count(p.Grid)
	fmt.Fprintf(w, "\nWorking range %s: %d%% mastered   overall: %d%%\n",
		p.Guardrail, mastery.GuardrailMastery(p.Grid, p.Guardrail), mastery.OverallMastery(p.Grid))
	fmt.Fprintf(w, "Mastered %d   missed last time %d   not mastered %d   locked %d\n",
		c.Mastered, c.RecentlyFailed, c.NotMastered, c.Locked)
	fmt.Fprintf(w, "Answers: %d correct of %d\n", p.TotalCorrectAnswers, p.TotalAttempts)
}

func cellSymbol(c mastery.Cell) string {
	if c.IsLocked {
		return ""
	}
	switch mastery.DeriveState(c) {
	case mastery.StateMastered:
		return "#"
	case mastery.StateRecentlyFailed:
		return "x"
	default:
		return "."
	}
}

func writeReview(w io.Writer, r *advisor.Review) {
	a := r.Analysis
	fmt.Fprintf(w, "Analysis (confidence %s, %d recent sessions)\n", a.Confidence, len(r.Sessions))
	fmt.Fprintln(w, strings.Repeat("─", 60))

	if len(a.StrugglingAreas) == 0 {
		fmt.Fprintln(w, "No struggling areas.")
	}
	for _, s := range a.StrugglingAreas {
		fmt.Fprintf(w, "  - %s\n", s)
	}
	if len(a.RecommendedAdjustments) > 0 {
		fmt.Fprintln(w, "\nRecommendations")
		for _, s := range a.RecommendedAdjustments {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if a.SuggestedGuardrail != "" && a.SuggestedGuardrail != r.Guardrail {
		fmt.Fprintf(w, "\nSuggested working range: %s (now %s)\n", a.SuggestedGuardrail, r.Guardrail)
	}

	if n := r.Note; n != nil {
		fmt.Fprintf(w, "\nCoach note: %s\n%s\n", n.Headline, n.Note)
		if len(n.FocusFacts) > 0 {
			fmt.Fprintf(w, "Focus on: %s\n", strings.Join(n.FocusFacts, ", "))
		}
	}
}

func init() {
	statsCmd.Flags().Bool("narrate", false, "Add an LLM-written coach note")
}
