package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/dispatch"
)

// priceCmd represents the price command
var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "옵션 가격 계산",
	Long: `Price one contract with a single engine or with every engine of its region.

Engines by region:
  eu (european) - Black Scholes, Binomial Tree, Monte Carlo
  us (american) - Binomial Tree, Monte Carlo, Deep Q-Network
  as (asian)    - Monte Carlo

Example:
  go run ./cmd/optionpricer price --style eu --right call --method bs
  go run ./cmd/optionpricer price --style us --right put --strike 110 --all`,
	RunE: runPrice,
}

var (
	priceContract contractFlags
	priceMethod   string
	priceAll      bool
)

func init() {
	rootCmd.AddCommand(priceCmd)

	priceContract.bind(priceCmd, "eu", "call")
	priceCmd.Flags().StringVar(&priceMethod, "method", "", "engine (bs|binomial|mc|dqn); default is the region's first engine")
	priceCmd.Flags().BoolVar(&priceAll, "all", false, "price with every engine of the region")
}

func runPrice(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	c, err := priceContract.contract()
	if err != nil {
		return err
	}

	d, err := dispatch.New(rt.pricing, dispatch.WithLogger(rt.log))
	if err != nil {
		return err
	}

	var results []*contracts.PricingResult
	if priceAll {
		results, err = d.PriceAll(cmd.Context(), c)
		if err != nil {
			return err
		}
	} else {
		method, err := resolveMethod(priceMethod, c)
		if err != nil {
			return err
		}
		r, err := d.Price(cmd.Context(), c, method)
		if err != nil {
			return err
		}
		results = []*contracts.PricingResult{r}
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return PrintJSON(out, map[string]interface{}{
			"contract": c.String(),
			"results":  results,
		})
	}

	PrintHeader(out, "Option Price", c)
	PrintResults(out, results)
	for _, r := range results {
		if len(r.Greeks) > 0 {
			fmt.Fprintf(out, "\n[%s] Greeks\n", r.Method)
			PrintGreeks(out, r.Greeks)
		}
		if verbose && len(r.Diagnostics) > 0 {
			fmt.Fprintf(out, "\n[%s] Diagnostics\n", r.Method)
			PrintDiagnostics(out, r.Diagnostics)
		}
	}
	return nil
}

// resolveMethod parses name, defaulting to the first engine of c's region
func resolveMethod(name string, c contracts.OptionContract) (contracts.Method, error) {
	if name != "" {
		return contracts.ParseMethod(name)
	}
	models, err := dispatch.Models(c.Style.Region())
	if err != nil {
		return "", err
	}
	return models[0], nil
}
