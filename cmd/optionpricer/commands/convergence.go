package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AAWorks/binomial-pricer/internal/dispatch"
)

// convergenceCmd represents the convergence command
var convergenceCmd = &cobra.Command{
	Use:   "convergence",
	Short: "이항 트리 수렴 진단",
	Long: `Price the contract on lattices of increasing depth, European and
American side by side, next to the closed-form European price.

Example:
  go run ./cmd/optionpricer convergence --style us --right put
  go run ./cmd/optionpricer convergence --from 10 --to 50`,
	RunE: runConvergence,
}

var (
	convergenceContract contractFlags
	convergenceFrom     int
	convergenceTo       int
)

func init() {
	rootCmd.AddCommand(convergenceCmd)

	convergenceContract.bind(convergenceCmd, "us", "put")
	convergenceCmd.Flags().IntVar(&convergenceFrom, "from", 0, "first depth (default from settings)")
	convergenceCmd.Flags().IntVar(&convergenceTo, "to", 0, "last depth, exclusive (default from settings)")
}

func runConvergence(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	c, err := convergenceContract.contract()
	if err != nil {
		return err
	}

	d, err := dispatch.New(rt.pricing, dispatch.WithLogger(rt.log))
	if err != nil {
		return err
	}
	report, err := d.Convergence(cmd.Context(), c, convergenceFrom, convergenceTo)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return PrintJSON(out, report)
	}

	PrintHeader(out, "Lattice Convergence", c)
	if report.Analytic != nil {
		PrintKeyValue(out, "Black Scholes", formatFloat(*report.Analytic), 14)
		PrintSeparator(out)
	}

	widths := []int{6, 14, 14}
	PrintTableHeader(out, []string{"Steps", "European", "American"}, widths)
	for _, p := range report.Points {
		PrintTableRow(out, []string{strconv.Itoa(p.Steps), formatFloat(p.European), formatFloat(p.American)}, widths)
	}
	return nil
}
