package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/timesgrid/internal/app"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Practice in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		resume, _ := cmd.Flags().GetString("resume")
		return runPlay(cmd, resume)
	},
}

// runPlay opens storage and launches the terminal app for --email.
func runPlay(cmd *cobra.Command, resumeID string) error {
	st, err := student(cmd)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd, runtimeOptions{logToFile: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	return app.Run(cmd.Context(), app.Options{
		Engine:   rt.engine,
		Journey:  rt.journey,
		Progress: rt.store.ProgressRepo(),
		Student:  st,
		ResumeID: resumeID,
		Logger:   rt.logger,
	})
}

func init() {
	playCmd.Flags().String("resume", "", "Resume the unfinished session with this id")
}
