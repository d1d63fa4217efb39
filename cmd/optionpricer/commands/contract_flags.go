package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/pricingconfig"
)

// contractFlags holds the contract terms shared by every pricing command
type contractFlags struct {
	style         string
	right         string
	spot          float64
	strike        float64
	maturity      string
	valuationDate string
	vol           float64
	rate          float64
	div           float64
}

// bind registers the contract flags on cmd with the given default style and right
func (f *contractFlags) bind(cmd *cobra.Command, style, right string) {
	cmd.Flags().StringVar(&f.style, "style", style, "exercise style (eu|us|as, european|american|asian)")
	cmd.Flags().StringVar(&f.right, "right", right, "option right (call|put)")
	cmd.Flags().Float64Var(&f.spot, "spot", 100, "underlying spot price")
	cmd.Flags().Float64Var(&f.strike, "strike", 100, "strike price")
	cmd.Flags().StringVar(&f.maturity, "maturity", "1", "years to expiry (e.g. 0.5) or expiry date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.valuationDate, "valuation-date", "", "valuation date YYYY-MM-DD (default today)")
	cmd.Flags().Float64Var(&f.vol, "vol", 0.2, "implied volatility (annual)")
	cmd.Flags().Float64Var(&f.rate, "rate", 0.05, "risk-free rate (continuous, annual)")
	cmd.Flags().Float64Var(&f.div, "div", 0, "dividend yield (continuous, annual)")
}

// entry converts the flags to settings-file contract terms
func (f *contractFlags) entry() (pricingconfig.BookEntry, error) {
	e := pricingconfig.BookEntry{
		ID:            "cli",
		Style:         f.style,
		Right:         f.right,
		Spot:          f.spot,
		Strike:        f.strike,
		ValuationDate: f.valuationDate,
		Volatility:    f.vol,
		RiskFreeRate:  f.rate,
		DividendRate:  f.div,
	}

	if years, err := strconv.ParseFloat(f.maturity, 64); err == nil {
		if years <= 0 {
			return e, fmt.Errorf("%w: maturity %v years", contracts.ErrExpiredContract, years)
		}
		e.Years = years
		return e, nil
	}
	if _, err := time.Parse(pricingconfig.DateLayout, f.maturity); err != nil {
		return e, fmt.Errorf("%w: --maturity %q is neither years nor YYYY-MM-DD", contracts.ErrInvalidContract, f.maturity)
	}
	e.Maturity = f.maturity
	return e, nil
}

// contract builds and validates the contract
func (f *contractFlags) contract() (contracts.OptionContract, error) {
	e, err := f.entry()
	if err != nil {
		return contracts.OptionContract{}, err
	}
	c, err := e.Contract(time.Now())
	if err != nil {
		return contracts.OptionContract{}, err
	}
	if err := c.Validate(); err != nil {
		return contracts.OptionContract{}, err
	}
	return c, nil
}
