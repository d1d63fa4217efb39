package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AAWorks/binomial-pricer/internal/pricingconfig"
	"github.com/AAWorks/binomial-pricer/pkg/config"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
)

var (
	// Global flags
	pricingConfigFile string
	outputFormat      string
	verbose           bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "optionpricer",
	Short: "옵션 가격 엔진 - Black-Scholes, 이항 트리, Monte Carlo, DQN",
	Long: `Option Pricer CLI

European, American and Asian options priced with a closed-form model,
a Cox-Ross-Rubinstein lattice, Monte Carlo simulation and a deep
Q-network exercise agent.

Usage:
  go run ./cmd/optionpricer [command]

Examples:
  go run ./cmd/optionpricer price --style eu --right call --method bs
  go run ./cmd/optionpricer price --style us --right put --all
  go run ./cmd/optionpricer greeks --style eu --method mc
  go run ./cmd/optionpricer train --style us --right put --maturity 0.25
  go run ./cmd/optionpricer serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&pricingConfigFile, "pricing-config", "", "engine settings YAML (default: $PRICING_CONFIG or built-in)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table|json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// runtime bundles what every command needs
type runtime struct {
	cfg     *config.Config
	pricing *pricingconfig.Config
	log     *logger.Logger
}

// loadRuntime reads .env and the engine settings. CLI logs go to stderr so
// stdout stays parseable.
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), level)

	path := pricingConfigFile
	if path == "" {
		path = cfg.PricingConfigPath
	}

	pricing := pricingconfig.Default()
	if path != "" {
		loaded, _, err := pricingconfig.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load pricing config %s: %w", path, err)
		}
		pricing = *loaded
	}

	if outputFormat != "table" && outputFormat != "json" {
		return nil, fmt.Errorf("unknown output format %q", outputFormat)
	}

	return &runtime{cfg: cfg, pricing: &pricing, log: log}, nil
}
