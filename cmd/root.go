package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "timesgrid",
	Short: "Adaptive multiplication facts practice",
	Long: "Times Grid tracks a student's mastery of the 1-12 multiplication facts, " +
		"runs placement tests and adaptive practice, and serves the same engine over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd, "")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to the SQLite database file (overrides TIMESGRID_DB and database.dsn)")
	pf.String("config", "", "Config file (default ./timesgrid.yaml or the user config dir)")
	pf.String("env-file", ".env", "Environment file loaded before reading config")
	pf.String("email", "", "Student email")
	pf.String("grade", "3", "Student grade level")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(guardrailCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}
