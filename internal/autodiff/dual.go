package autodiff

import "math"

// Var indexes an input of a pricing formula
type Var int

const (
	Spot Var = iota
	Strike
	Volatility
	Rate
	Dividend
	Time
	NumVars
)

// Dual carries a value and its gradient with respect to every Var
type Dual struct {
	V float64
	D [NumVars]float64
}

// Variable seeds x as the independent input v
func Variable(x float64, v Var) Dual {
	d := Dual{V: x}
	d.D[v] = 1
	return d
}

// Grad returns ∂/∂v
func (a Dual) Grad(v Var) float64 {
	return a.D[v]
}

func (a Dual) Value() float64 { return a.V }

func (Dual) Const(v float64) Dual { return Dual{V: v} }

func (a Dual) Add(b Dual) Dual {
	out := Dual{V: a.V + b.V}
	for i := range out.D {
		out.D[i] = a.D[i] + b.D[i]
	}
	return out
}

func (a Dual) Sub(b Dual) Dual {
	out := Dual{V: a.V - b.V}
	for i := range out.D {
		out.D[i] = a.D[i] - b.D[i]
	}
	return out
}

func (a Dual) Mul(b Dual) Dual {
	out := Dual{V: a.V * b.V}
	for i := range out.D {
		out.D[i] = a.D[i]*b.V + a.V*b.D[i]
	}
	return out
}

func (a Dual) Div(b Dual) Dual {
	out := Dual{V: a.V / b.V}
	b2 := b.V * b.V
	for i := range out.D {
		out.D[i] = (a.D[i]*b.V - a.V*b.D[i]) / b2
	}
	return out
}

func (a Dual) Neg() Dual { return a.Scale(-1) }

func (a Dual) Scale(k float64) Dual {
	out := Dual{V: a.V * k}
	for i := range out.D {
		out.D[i] = a.D[i] * k
	}
	return out
}

// chain applies f with f(a.V) = v and f'(a.V) = dv
func (a Dual) chain(v, dv float64) Dual {
	out := Dual{V: v}
	for i := range out.D {
		out.D[i] = dv * a.D[i]
	}
	return out
}

func (a Dual) Exp() Dual {
	e := math.Exp(a.V)
	return a.chain(e, e)
}

func (a Dual) Log() Dual {
	return a.chain(math.Log(a.V), 1/a.V)
}

func (a Dual) Sqrt() Dual {
	s := math.Sqrt(a.V)
	return a.chain(s, 0.5/s)
}

func (a Dual) NormCDF() Dual {
	return a.chain(NormCDF(a.V), NormPDF(a.V))
}
