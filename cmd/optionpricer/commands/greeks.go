package commands

import (
	"github.com/spf13/cobra"

	"github.com/AAWorks/binomial-pricer/internal/dispatch"
)

// greeksCmd represents the greeks command
var greeksCmd = &cobra.Command{
	Use:   "greeks",
	Short: "민감도(Greeks) 계산",
	Long: `Compute delta, gamma, vega, theta, rho and epsilon of a contract.

Black Scholes uses automatic differentiation, the binomial tree uses
bump-and-reprice, Monte Carlo uses pathwise derivatives for European
options and bump-and-reprice otherwise. Theta is -dNPV/dT per year.

Example:
  go run ./cmd/optionpricer greeks --style eu --method bs
  go run ./cmd/optionpricer greeks --style us --right put --method binomial`,
	RunE: runGreeks,
}

var (
	greeksContract contractFlags
	greeksMethod   string
)

func init() {
	rootCmd.AddCommand(greeksCmd)

	greeksContract.bind(greeksCmd, "eu", "call")
	greeksCmd.Flags().StringVar(&greeksMethod, "method", "", "engine (bs|binomial|mc); default is the region's first engine")
}

func runGreeks(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	c, err := greeksContract.contract()
	if err != nil {
		return err
	}
	method, err := resolveMethod(greeksMethod, c)
	if err != nil {
		return err
	}

	d, err := dispatch.New(rt.pricing, dispatch.WithLogger(rt.log))
	if err != nil {
		return err
	}
	g, err := d.Greeks(cmd.Context(), c, method)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return PrintJSON(out, map[string]interface{}{
			"contract": c.String(),
			"method":   method,
			"greeks":   g,
		})
	}

	PrintHeader(out, "Greeks - "+string(method), c)
	PrintGreeks(out, g)
	return nil
}
