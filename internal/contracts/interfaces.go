package contracts

import "context"

// Pricer computes the NPV of a contract
// ⭐ SSOT: 모든 가격 엔진은 이 인터페이스를 구현
type Pricer interface {
	Price(ctx context.Context, c OptionContract) (*PricingResult, error)
}

// GreeksCalculator computes sensitivities of a contract's NPV
type GreeksCalculator interface {
	Greeks(ctx context.Context, c OptionContract) (Greeks, error)
}

// PricerFunc adapts a function to the Pricer interface
type PricerFunc func(ctx context.Context, c OptionContract) (*PricingResult, error)

// Price implements Pricer
func (f PricerFunc) Price(ctx context.Context, c OptionContract) (*PricingResult, error) {
	return f(ctx, c)
}

// GreeksFunc adapts a function to the GreeksCalculator interface
type GreeksFunc func(ctx context.Context, c OptionContract) (Greeks, error)

// Greeks implements GreeksCalculator
func (f GreeksFunc) Greeks(ctx context.Context, c OptionContract) (Greeks, error) {
	return f(ctx, c)
}
