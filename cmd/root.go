// Package cmd holds the gram-sahayak command line.
package cmd

import (
	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/gram-sahayak/pkg/config"
	logx "github.com/tanpawarit/gram-sahayak/pkg/logger"
)

var (
	envFile     string
	debugLog    bool
	prettyLog   bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "gram-sahayak",
	Short: "Guided loan application assistant for farmers",
	Long: `Gram Sahayak walks a farmer through a loan scheme application: it captures
the requested amount, reads name and land area from a 7/12 extract photo,
matches eligible schemes and produces the filled application PDF.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			configx.SetEnvFile(envFile)
		}
		// Flags override the LOG_* values applied on import.
		flags := cmd.Flags()
		if flags.Changed("debug") || flags.Changed("pretty") {
			logx.Init(logx.Config{Debug: debugLog, PrettyFormat: prettyLog})
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env when present)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", false, "human readable log output")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd, chatCmd, eligibilityCmd, renderCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
