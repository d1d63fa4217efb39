package contracts

import "errors"

// Pricing and training errors. Callers match them with errors.Is.
// None of them is transient, so nothing in the pricer retries on them.
var (
	// ErrInvalidContract: non-positive spot/strike, negative volatility, unknown style or right
	ErrInvalidContract = errors.New("invalid option contract")

	// ErrExpiredContract: time to maturity <= 0
	ErrExpiredContract = errors.New("option contract expired")

	// ErrDegenerateInput: σ·√T == 0 in a closed-form context
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrInvalidLatticeParameters: CRR probability outside [0, 1] or a non-positive step
	ErrInvalidLatticeParameters = errors.New("invalid lattice parameters")

	// ErrNumericalInstability: NaN/Inf output or a negative early-exercise premium
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrUnsupportedStyle: the engine cannot price this exercise style
	ErrUnsupportedStyle = errors.New("unsupported exercise style")

	// ErrUnknownMethod: no engine registered under the requested name for the region
	ErrUnknownMethod = errors.New("unknown pricing method")

	// ErrGreeksUnsupported: the method does not produce sensitivities
	ErrGreeksUnsupported = errors.New("greeks not supported for method")

	// ErrInvalidSettings: engine or trainer settings out of range
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrUninitializedAgent: replay buffer requested before the agent exists
	ErrUninitializedAgent = errors.New("agent not initialized")

	// ErrUnbuiltBuffer: training requested before the replay buffer exists
	ErrUnbuiltBuffer = errors.New("replay buffer not built")

	// ErrUntrainedAgent: NPV requested before training finished
	ErrUntrainedAgent = errors.New("agent not trained")

	// ErrEnvironmentTerminated: step called on a terminal state
	ErrEnvironmentTerminated = errors.New("environment already terminated")
)
