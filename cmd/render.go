package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/loan"
	"github.com/tanpawarit/gram-sahayak/assistant/render"
)

var (
	renderName   string
	renderArea   string
	renderLoan   string
	renderScheme string
	renderOut    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write an application PDF without running a conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		scheme, ok := eligibility.Default().Lookup(eligibility.SchemeID(renderScheme))
		if !ok {
			return fmt.Errorf("%w: unknown scheme %q", contractx.ErrValidation, renderScheme)
		}

		doc, err := render.NewPDFRenderer().Render(cmd.Context(), contractx.Application{
			Name:       renderName,
			Area:       renderArea,
			Amount:     loan.Resolve(renderLoan).Display,
			SchemeName: scheme.Name,
			Date:       time.Now(),
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(renderOut, doc, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", renderOut, len(doc))
		return nil
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderName, "name", "", "farmer name")
	f.StringVar(&renderArea, "area", "", "land area as written on the 7/12 extract")
	f.StringVar(&renderLoan, "loan", "", "loan request as spoken, e.g. \"5 lakh\"")
	f.StringVar(&renderScheme, "scheme", "kcc", "scheme id")
	f.StringVar(&renderOut, "out", "Application.pdf", "output path")
	_ = renderCmd.MarkFlagRequired("name")
	_ = renderCmd.MarkFlagRequired("area")
}
