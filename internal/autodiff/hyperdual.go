package autodiff

import "math"

// HyperDual is a + b·ε1 + c·ε2 + d·ε1ε2 with ε1² = ε2² = 0.
// Seeding b = c = 1 on one input makes d the exact second derivative.
type HyperDual struct {
	A, B, C, D float64
}

// HyperVariable seeds x as the differentiation direction
func HyperVariable(x float64) HyperDual {
	return HyperDual{A: x, B: 1, C: 1}
}

// First returns the first derivative along the seeded direction
func (h HyperDual) First() float64 { return h.B }

// Second returns the second derivative along the seeded direction
func (h HyperDual) Second() float64 { return h.D }

func (h HyperDual) Value() float64 { return h.A }

func (HyperDual) Const(v float64) HyperDual { return HyperDual{A: v} }

func (h HyperDual) Add(o HyperDual) HyperDual {
	return HyperDual{h.A + o.A, h.B + o.B, h.C + o.C, h.D + o.D}
}

func (h HyperDual) Sub(o HyperDual) HyperDual {
	return HyperDual{h.A - o.A, h.B - o.B, h.C - o.C, h.D - o.D}
}

func (h HyperDual) Mul(o HyperDual) HyperDual {
	return HyperDual{
		A: h.A * o.A,
		B: h.A*o.B + h.B*o.A,
		C: h.A*o.C + h.C*o.A,
		D: h.A*o.D + h.B*o.C + h.C*o.B + h.D*o.A,
	}
}

func (h HyperDual) Div(o HyperDual) HyperDual {
	inv := 1 / o.A
	return h.Mul(o.chain(inv, -inv*inv, 2*inv*inv*inv))
}

func (h HyperDual) Neg() HyperDual { return h.Scale(-1) }

func (h HyperDual) Scale(k float64) HyperDual {
	return HyperDual{h.A * k, h.B * k, h.C * k, h.D * k}
}

// chain applies f with value f, first derivative f1, second derivative f2
func (h HyperDual) chain(f, f1, f2 float64) HyperDual {
	return HyperDual{
		A: f,
		B: f1 * h.B,
		C: f1 * h.C,
		D: f1*h.D + f2*h.B*h.C,
	}
}

func (h HyperDual) Exp() HyperDual {
	e := math.Exp(h.A)
	return h.chain(e, e, e)
}

func (h HyperDual) Log() HyperDual {
	return h.chain(math.Log(h.A), 1/h.A, -1/(h.A*h.A))
}

func (h HyperDual) Sqrt() HyperDual {
	s := math.Sqrt(h.A)
	return h.chain(s, 0.5/s, -0.25/(s*h.A))
}

func (h HyperDual) NormCDF() HyperDual {
	pdf := NormPDF(h.A)
	return h.chain(NormCDF(h.A), pdf, -h.A*pdf)
}
