package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AAWorks/binomial-pricer/internal/dispatch"
	"github.com/AAWorks/binomial-pricer/internal/dqn"
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "DQN 조기행사 에이전트 학습",
	Long: `Train a deep Q-network to decide when to exercise an American option,
then value the option by running the greedy policy.

The training log streams as it is produced, followed by the learning curve
and the NPV. Unset flags keep the values of the engine settings.

Example:
  go run ./cmd/optionpricer train --style us --right put --maturity 0.25
  go run ./cmd/optionpricer train --iterations 5000 --batch-size 128 --lr 0.0005`,
	RunE: runTrain,
}

var (
	trainContract contractFlags
	trainHP       dqn.Hyperparameters
)

func init() {
	rootCmd.AddCommand(trainCmd)

	trainContract.bind(trainCmd, "us", "put")

	def := dqn.DefaultHyperparameters()
	f := trainCmd.Flags()
	f.IntVar(&trainHP.Iterations, "iterations", def.Iterations, "training iterations")
	f.IntVar(&trainHP.CollectStepsPerIteration, "collect-steps", def.CollectStepsPerIteration, "environment steps collected per iteration")
	f.IntVar(&trainHP.ReplayCapacity, "replay-capacity", def.ReplayCapacity, "replay buffer capacity")
	f.IntVar(&trainHP.BatchSize, "batch-size", def.BatchSize, "gradient batch size")
	f.Float64Var(&trainHP.LearningRate, "lr", def.LearningRate, "Adam learning rate")
	f.IntVar(&trainHP.EvalEpisodes, "eval-episodes", def.EvalEpisodes, "episodes per evaluation")
	f.IntVar(&trainHP.EvalInterval, "eval-interval", def.EvalInterval, "iterations between evaluations")
	f.IntVar(&trainHP.LogInterval, "log-interval", def.LogInterval, "iterations between loss logs")
	f.IntVar(&trainHP.HiddenUnits, "hidden", def.HiddenUnits, "hidden layer width")
	f.IntVar(&trainHP.NPVEpisodes, "npv-episodes", def.NPVEpisodes, "episodes averaged for the NPV")
	f.Uint64Var(&trainHP.Seed, "seed", def.Seed, "network and exploration seed")
}

// trainHyperparameters overlays the flags the user set on the configured values
func trainHyperparameters(cmd *cobra.Command, base dqn.Hyperparameters) dqn.Hyperparameters {
	hp := base
	f := cmd.Flags()
	overlay := map[string]func(){
		"iterations":      func() { hp.Iterations = trainHP.Iterations },
		"collect-steps":   func() { hp.CollectStepsPerIteration = trainHP.CollectStepsPerIteration },
		"replay-capacity": func() { hp.ReplayCapacity = trainHP.ReplayCapacity },
		"batch-size":      func() { hp.BatchSize = trainHP.BatchSize },
		"lr":              func() { hp.LearningRate = trainHP.LearningRate },
		"eval-episodes":   func() { hp.EvalEpisodes = trainHP.EvalEpisodes },
		"eval-interval":   func() { hp.EvalInterval = trainHP.EvalInterval },
		"log-interval":    func() { hp.LogInterval = trainHP.LogInterval },
		"hidden":          func() { hp.HiddenUnits = trainHP.HiddenUnits },
		"npv-episodes":    func() { hp.NPVEpisodes = trainHP.NPVEpisodes },
		"seed":            func() { hp.Seed = trainHP.Seed },
	}
	for name, apply := range overlay {
		if f.Changed(name) {
			apply()
		}
	}
	return hp
}

func runTrain(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	c, err := trainContract.contract()
	if err != nil {
		return err
	}
	hp := trainHyperparameters(cmd, rt.pricing.DQN)

	d, err := dispatch.New(rt.pricing, dispatch.WithLogger(rt.log))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	jsonOut := outputFormat == "json"
	if !jsonOut {
		PrintHeader(out, "DQN Training", c)
	}

	report, err := d.Train(cmd.Context(), c, &hp, func(e dqn.LogEntry) {
		if !jsonOut {
			fmt.Fprintln(out, e.Message)
		}
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return PrintJSON(out, report)
	}

	PrintSeparator(out)
	widths := []int{10, 16}
	PrintTableHeader(out, []string{"Iteration", "Avg Return"}, widths)
	for _, p := range report.LearningCurve {
		PrintTableRow(out, []string{strconv.Itoa(p.Iteration), formatFloat(p.AverageReturn)}, widths)
	}
	PrintSeparator(out)
	PrintKeyValue(out, "Run ID", report.RunID, 6)
	PrintKeyValue(out, "NPV", formatFloat(report.NPV), 6)
	return nil
}
