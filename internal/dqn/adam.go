package dqn

import "math"

// adam is the Adam optimizer over a fixed list of parameter buffers
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  [][]float64
}

func newAdam(lr float64, params [][]float64) *adam {
	o := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
	for _, p := range params {
		o.m = append(o.m, make([]float64, len(p)))
		o.v = append(o.v, make([]float64, len(p)))
	}
	return o
}

// step updates params in place from grads (same shapes and order)
func (o *adam) step(params, grads [][]float64) {
	o.t++
	c1 := 1 - math.Pow(o.beta1, float64(o.t))
	c2 := 1 - math.Pow(o.beta2, float64(o.t))

	for i, p := range params {
		g, m, v := grads[i], o.m[i], o.v[i]
		for j := range p {
			m[j] = o.beta1*m[j] + (1-o.beta1)*g[j]
			v[j] = o.beta2*v[j] + (1-o.beta2)*g[j]*g[j]
			p[j] -= o.lr * (m[j] / c1) / (math.Sqrt(v[j]/c2) + o.eps)
		}
	}
}
