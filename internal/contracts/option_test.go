package contracts

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var valuation = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func TestTimeToMaturity(t *testing.T) {
	tests := []struct {
		name      string
		maturity  time.Time
		valuation time.Time
		want      float64
	}{
		{"one year", valuation.AddDate(0, 0, 365), valuation, 1.0},
		{"half year", valuation.AddDate(0, 0, 73), valuation, 0.2},
		{"intraday times ignored", valuation.AddDate(0, 0, 365).Add(15 * time.Hour), valuation.Add(9 * time.Hour), 1.0},
		{"expired", valuation.AddDate(0, 0, -1), valuation, -1.0 / 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := OptionContract{Maturity: tt.maturity, ValuationDate: tt.valuation}
			assert.InDelta(t, tt.want, c.TimeToMaturity(), 1e-12)
		})
	}
}

func TestNewContract(t *testing.T) {
	c := NewContract(European, Call, 100, 100, 0.75, 0.2, 0.01, 0, valuation)

	assert.Equal(t, 0.75, c.TimeToMaturity())
	assert.Equal(t, valuation.AddDate(0, 0, 274), c.Maturity)
	require.NoError(t, c.Validate())

	bumped := c.WithTimeToMaturity(0.5)
	assert.Equal(t, 0.5, bumped.TimeToMaturity())
	assert.Equal(t, 0.75, c.TimeToMaturity(), "original is unchanged")
}

func TestValidate(t *testing.T) {
	base := NewContract(American, Put, 100, 100, 1, 0.2, 0.02, 0, valuation)

	tests := []struct {
		name    string
		mutate  func(OptionContract) OptionContract
		wantErr error
	}{
		{"valid", func(c OptionContract) OptionContract { return c }, nil},
		{"zero vol allowed", func(c OptionContract) OptionContract { return c.WithVolatility(0) }, nil},
		{"expired", func(c OptionContract) OptionContract { return c.WithTimeToMaturity(-0.1) }, ErrExpiredContract},
		{"expires today", func(c OptionContract) OptionContract { return c.WithTimeToMaturity(0) }, ErrExpiredContract},
		{"negative spot", func(c OptionContract) OptionContract { return c.WithSpot(-1) }, ErrInvalidContract},
		{"zero strike", func(c OptionContract) OptionContract { c.Strike = 0; return c }, ErrInvalidContract},
		{"negative vol", func(c OptionContract) OptionContract { return c.WithVolatility(-0.1) }, ErrInvalidContract},
		{"nan rate", func(c OptionContract) OptionContract { return c.WithRiskFreeRate(math.NaN()) }, ErrInvalidContract},
		{"bad style", func(c OptionContract) OptionContract { return c.WithStyle("bermudan") }, ErrInvalidContract},
		{"bad right", func(c OptionContract) OptionContract { c.Right = "straddle"; return c }, ErrInvalidContract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(base).Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestIntrinsic(t *testing.T) {
	call := NewContract(European, Call, 100, 100, 1, 0.2, 0, 0, valuation)
	put := NewContract(European, Put, 100, 100, 1, 0.2, 0, 0, valuation)

	assert.Equal(t, 10.0, call.Intrinsic(110))
	assert.Equal(t, 0.0, call.Intrinsic(90))
	assert.Equal(t, 10.0, put.Intrinsic(90))
	assert.Equal(t, 0.0, put.Intrinsic(110))
	assert.Equal(t, 1.0, call.Sign())
	assert.Equal(t, -1.0, put.Sign())
}

func TestParse(t *testing.T) {
	s, err := ParseStyle("US")
	require.NoError(t, err)
	assert.Equal(t, American, s)
	assert.Equal(t, "us", s.Region())

	r, err := ParseRight("p")
	require.NoError(t, err)
	assert.Equal(t, Put, r)

	m, err := ParseMethod("crr")
	require.NoError(t, err)
	assert.Equal(t, MethodBinomialTree, m)

	_, err = ParseMethod("svm")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = ParseStyle("bermudan")
	assert.ErrorIs(t, err, ErrInvalidContract)
}

func TestCheckFinite(t *testing.T) {
	premium := math.Inf(1)

	tests := []struct {
		name    string
		result  PricingResult
		wantErr bool
	}{
		{"finite", PricingResult{Method: MethodBlackScholes, NPV: 7.97, Greeks: Greeks{Delta: 0.54}}, false},
		{"nan npv", PricingResult{Method: MethodMonteCarlo, NPV: math.NaN()}, true},
		{"inf greek", PricingResult{Method: MethodMonteCarlo, NPV: 1, Greeks: Greeks{Gamma: math.Inf(-1)}}, true},
		{"inf premium", PricingResult{Method: MethodBinomialTree, NPV: 1, EarlyExercisePremium: &premium}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFinite(&tt.result)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNumericalInstability)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFuncAdapters(t *testing.T) {
	c := NewContract(European, Call, 100, 100, 1, 0.2, 0.05, 0, valuation)

	var p Pricer = PricerFunc(func(_ context.Context, c OptionContract) (*PricingResult, error) {
		return &PricingResult{NPV: c.Spot}, nil
	})
	r, err := p.Price(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.NPV)

	var g GreeksCalculator = GreeksFunc(func(_ context.Context, c OptionContract) (Greeks, error) {
		return Greeks{Delta: c.Strike / 200}, nil
	})
	out, err := g.Greeks(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 0.5, out[Delta])
}
