package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AAWorks/binomial-pricer/internal/dispatch"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "기초자산 경로 시뮬레이션",
	Long: `Print one simulated daily path of the underlying under the
risk-neutral measure, as seen by the exercise environment.

Example:
  go run ./cmd/optionpricer simulate --maturity 0.25
  go run ./cmd/optionpricer simulate --episode 3 -o json`,
	RunE: runSimulate,
}

var (
	simulateContract contractFlags
	simulateEpisode  int
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateContract.bind(simulateCmd, "eu", "call")
	simulateCmd.Flags().IntVar(&simulateEpisode, "episode", 0, "episode number; each episode is a different path")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	c, err := simulateContract.contract()
	if err != nil {
		return err
	}

	d, err := dispatch.New(rt.pricing, dispatch.WithLogger(rt.log))
	if err != nil {
		return err
	}
	path, err := d.SimulatePath(c, simulateEpisode)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return PrintJSON(out, map[string]interface{}{
			"contract": c.String(),
			"episode":  simulateEpisode,
			"path":     path,
		})
	}

	PrintHeader(out, "Simulated Path", c)
	widths := []int{6, 14}
	PrintTableHeader(out, []string{"Day", "Price"}, widths)
	for day, price := range path {
		PrintTableRow(out, []string{strconv.Itoa(day), formatFloat(price)}, widths)
	}
	return nil
}
