// Package dispatch routes option contracts to the pricing engine that
// applies to their market region and fans out "every model" requests.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AAWorks/binomial-pricer/internal/analytic"
	"github.com/AAWorks/binomial-pricer/internal/contracts"
	"github.com/AAWorks/binomial-pricer/internal/dqn"
	"github.com/AAWorks/binomial-pricer/internal/greeks"
	"github.com/AAWorks/binomial-pricer/internal/lattice"
	"github.com/AAWorks/binomial-pricer/internal/montecarlo"
	"github.com/AAWorks/binomial-pricer/internal/pricingconfig"
	"github.com/AAWorks/binomial-pricer/pkg/logger"
	"github.com/AAWorks/binomial-pricer/pkg/metrics"
)

// Region codes
const (
	RegionEU = "eu"
	RegionUS = "us"
	RegionAS = "as"
)

// regionModels lists the engines of each region in display order
// ⭐ SSOT: 지역별 모델 목록은 여기서만
var regionModels = map[string][]contracts.Method{
	RegionEU: {contracts.MethodBlackScholes, contracts.MethodBinomialTree, contracts.MethodMonteCarlo},
	RegionUS: {contracts.MethodBinomialTree, contracts.MethodMonteCarlo, contracts.MethodDQN},
	RegionAS: {contracts.MethodMonteCarlo},
}

// Regions returns the known region codes in a fixed order
func Regions() []string {
	return []string{RegionEU, RegionUS, RegionAS}
}

// Models returns the engines available for region, in display order
func Models(region string) ([]contracts.Method, error) {
	models, ok := regionModels[region]
	if !ok {
		return nil, fmt.Errorf("%w: unknown region %q", contracts.ErrUnsupportedStyle, region)
	}
	return slices.Clone(models), nil
}

// ResultCache stores priced results between calls.
// A miss is (nil, false, nil).
type ResultCache interface {
	Get(ctx context.Context, key string) (*contracts.PricingResult, bool, error)
	Set(ctx context.Context, key string, result *contracts.PricingResult) error
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithCache enables result caching
func WithCache(cache ResultCache) Option {
	return func(d *Dispatcher) { d.cache = cache }
}

// WithLogger sets the logger shared by every engine
func WithLogger(log *logger.Logger) Option {
	return func(d *Dispatcher) { d.logger = log }
}

// WithMetrics records engine calls and cache lookups
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher owns one engine per method
type Dispatcher struct {
	cfg        pricingconfig.Config
	engineHash string

	analytic   *analytic.Engine
	lattice    *lattice.Engine
	montecarlo *montecarlo.Engine
	dqn        *dqn.Engine

	cache   ResultCache
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// New validates cfg and builds every engine
func New(cfg *pricingconfig.Config, opts ...Option) (*Dispatcher, error) {
	if cfg == nil {
		def := pricingconfig.Default()
		cfg = &def
	}
	if err := pricingconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrInvalidSettings, err)
	}

	d := &Dispatcher{cfg: *cfg}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.OrNop(d.logger)

	hash, err := pricingconfig.EngineHash(cfg)
	if err != nil {
		return nil, err
	}
	d.engineHash = hash

	d.analytic = analytic.New(d.logger)
	d.lattice = lattice.New(cfg.Lattice.Steps, d.logger)
	if d.montecarlo, err = montecarlo.New(cfg.MonteCarlo, d.logger); err != nil {
		return nil, err
	}
	if d.dqn, err = dqn.NewEngine(cfg.DQN, cfg.Environment, d.logger); err != nil {
		return nil, err
	}
	return d, nil
}

// Settings returns the engine configuration
func (d *Dispatcher) Settings() pricingconfig.Config {
	return d.cfg
}

// pricer resolves method for the contract's region
func (d *Dispatcher) pricer(c contracts.OptionContract, method contracts.Method) (contracts.Pricer, error) {
	if _, err := contracts.ParseMethod(string(method)); err != nil {
		return nil, err
	}
	models, err := Models(c.Style.Region())
	if err != nil {
		return nil, err
	}
	if !slices.Contains(models, method) {
		return nil, fmt.Errorf("%w: %s is not available for %s options", contracts.ErrUnsupportedStyle, method, c.Style)
	}

	switch method {
	case contracts.MethodBlackScholes:
		return d.analytic, nil
	case contracts.MethodBinomialTree:
		return d.lattice, nil
	case contracts.MethodMonteCarlo:
		return d.montecarlo, nil
	case contracts.MethodDQN:
		return d.dqn, nil
	default:
		return nil, fmt.Errorf("%w: %q", contracts.ErrUnknownMethod, method)
	}
}

// Price values c with one engine
func (d *Dispatcher) Price(ctx context.Context, c contracts.OptionContract, method contracts.Method) (*contracts.PricingResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pricer, err := d.pricer(c, method)
	if err != nil {
		return nil, err
	}

	key := d.cacheKey(method, c)
	if cached, ok := d.cachedResult(ctx, key); ok {
		return cached, nil
	}

	start := time.Now()
	result, err := pricer.Price(ctx, c)
	d.metrics.ObservePricing(string(method), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	d.storeResult(ctx, key, result)
	return result, nil
}

// PriceAll values c with every engine of its region. Results follow the
// region's display order; the first failure cancels the rest and no
// partial list is returned.
func (d *Dispatcher) PriceAll(ctx context.Context, c contracts.OptionContract) ([]*contracts.PricingResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	models, err := Models(c.Style.Region())
	if err != nil {
		return nil, err
	}

	results := make([]*contracts.PricingResult, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, method := range models {
		g.Go(func() error {
			r, err := d.Price(gctx, c, method)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Greeks computes sensitivities with the technique that suits method:
// automatic differentiation for Black-Scholes, bump-and-reprice for the
// lattice, pathwise or bumped simulation for Monte Carlo
func (d *Dispatcher) Greeks(ctx context.Context, c contracts.OptionContract, method contracts.Method) (contracts.Greeks, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, err := d.pricer(c, method); err != nil {
		return nil, err
	}

	calc, err := d.greeksCalculator(method)
	if err != nil {
		return nil, err
	}

	g, err := calc.Greeks(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s greeks: %w", method, err)
	}
	return g, nil
}

// greeksCalculator picks the sensitivity technique for method
func (d *Dispatcher) greeksCalculator(method contracts.Method) (contracts.GreeksCalculator, error) {
	switch method {
	case contracts.MethodBlackScholes:
		return d.analytic, nil
	case contracts.MethodBinomialTree:
		return contracts.GreeksFunc(func(ctx context.Context, c contracts.OptionContract) (contracts.Greeks, error) {
			return greeks.FiniteDifference(ctx, d.lattice, c, d.cfg.Greeks)
		}), nil
	case contracts.MethodMonteCarlo:
		return d.montecarlo, nil
	default:
		return nil, fmt.Errorf("%w: %s", contracts.ErrGreeksUnsupported, method)
	}
}

// ConvergenceReport is the lattice price at each depth next to the
// closed-form price of the European counterpart
type ConvergenceReport struct {
	Contract string                     `json:"contract"`
	Points   []lattice.ConvergencePoint `json:"points"`
	Analytic *float64                   `json:"analytic,omitempty"` // nil when the closed form is degenerate
}

// Convergence runs the lattice for every depth in [from, to).
// A zero range uses the configured one.
func (d *Dispatcher) Convergence(ctx context.Context, c contracts.OptionContract, from, to int) (*ConvergenceReport, error) {
	if from == 0 && to == 0 {
		from, to = d.cfg.Lattice.ConvergenceFrom, d.cfg.Lattice.ConvergenceTo
	}

	points, err := lattice.Convergence(ctx, c, from, to)
	if err != nil {
		return nil, err
	}

	report := &ConvergenceReport{Contract: c.String(), Points: points}
	baseline, err := analytic.NPV(c.WithStyle(contracts.European))
	switch {
	case err == nil:
		report.Analytic = &baseline
	case errors.Is(err, contracts.ErrDegenerateInput):
		d.logger.WithField("contract", c.String()).Debug("no analytic baseline for degenerate contract")
	default:
		return nil, err
	}
	return report, nil
}

func (d *Dispatcher) cacheKey(method contracts.Method, c contracts.OptionContract) string {
	return fmt.Sprintf("price:%s|%s|%s", method, c.Key(), d.engineHash)
}

// cachedResult never fails the request; cache errors only log
func (d *Dispatcher) cachedResult(ctx context.Context, key string) (*contracts.PricingResult, bool) {
	if d.cache == nil {
		return nil, false
	}
	r, ok, err := d.cache.Get(ctx, key)
	switch {
	case err != nil:
		d.metrics.ObserveCache("error")
		d.logger.WithError(err).Warn("result cache read failed")
		return nil, false
	case ok:
		d.metrics.ObserveCache("hit")
	default:
		d.metrics.ObserveCache("miss")
	}
	return r, ok
}

func (d *Dispatcher) storeResult(ctx context.Context, key string, r *contracts.PricingResult) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Set(ctx, key, r); err != nil {
		d.logger.WithError(err).Warn("result cache write failed")
	}
}
