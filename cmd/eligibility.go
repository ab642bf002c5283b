package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
)

var eligibilityOccupation string

var eligibilityCmd = &cobra.Command{
	Use:   "eligibility <land area>",
	Short: "List the schemes a land holding qualifies for",
	Example: `  gram-sahayak eligibility 2.5
  gram-sahayak eligibility "१.२ Hectare"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if noColorFlag {
			color.NoColor = true
		}
		catalog := eligibility.Default()
		profile := eligibility.Profile{Occupation: eligibilityOccupation, LandHolding: args[0]}
		matches := catalog.Evaluate(profile)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "land area %q = %.2f ha\n", args[0], profile.Hectares())
		if len(matches) == 0 {
			color.New(color.FgYellow).Fprintln(out, "no scheme matches")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSCHEME\tMIN HA")
		for _, s := range matches {
			fmt.Fprintf(w, "%s\t%s\t%.1f\n", s.ID, s.Name, s.MinHectares)
		}
		return w.Flush()
	},
}

func init() {
	eligibilityCmd.Flags().StringVar(&eligibilityOccupation, "occupation", eligibility.OccupationFarmer, "applicant occupation")
}
