package dqn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// inputSize is the observation dimensionality (normalized price, time remaining)
const inputSize = 2

// qNetwork is a dense 2 → hidden (ReLU) → actions value network
type qNetwork struct {
	w1 *mat.Dense // hidden × input
	b1 *mat.VecDense
	w2 *mat.Dense // actions × hidden
	b2 *mat.VecDense
}

// newQNetwork initializes hidden weights with He-normal and output weights
// with small uniform values so initial Q estimates are close to zero
func newQNetwork(hidden, actions int, rng *rand.Rand) *qNetwork {
	n := &qNetwork{
		w1: mat.NewDense(hidden, inputSize, nil),
		b1: mat.NewVecDense(hidden, nil),
		w2: mat.NewDense(actions, hidden, nil),
		b2: mat.NewVecDense(actions, nil),
	}

	scale := math.Sqrt(2.0 / inputSize)
	w1 := n.w1.RawMatrix().Data
	for i := range w1 {
		w1[i] = rng.NormFloat64() * scale
	}
	w2 := n.w2.RawMatrix().Data
	for i := range w2 {
		w2[i] = (rng.Float64()*2 - 1) * 0.03
	}
	return n
}

// params returns the trainable buffers in a fixed order
func (n *qNetwork) params() [][]float64 {
	return [][]float64{
		n.w1.RawMatrix().Data,
		n.b1.RawVector().Data,
		n.w2.RawMatrix().Data,
		n.b2.RawVector().Data,
	}
}

// copyFrom overwrites n with the weights of src
func (n *qNetwork) copyFrom(src *qNetwork) {
	n.w1.Copy(src.w1)
	n.b1.CopyVec(src.b1)
	n.w2.Copy(src.w2)
	n.b2.CopyVec(src.b2)
}

func (n *qNetwork) clone() *qNetwork {
	hidden, _ := n.w1.Dims()
	actions, _ := n.w2.Dims()
	c := &qNetwork{
		w1: mat.NewDense(hidden, inputSize, nil),
		b1: mat.NewVecDense(hidden, nil),
		w2: mat.NewDense(actions, hidden, nil),
		b2: mat.NewVecDense(actions, nil),
	}
	c.copyFrom(n)
	return c
}

// q evaluates one observation without allocating matrices; dst has one
// entry per action
func (n *qNetwork) q(x [inputSize]float64, dst []float64) {
	hidden, _ := n.w1.Dims()
	w1 := n.w1.RawMatrix()
	w2 := n.w2.RawMatrix()
	b1 := n.b1.RawVector().Data
	b2 := n.b2.RawVector().Data

	for a := range dst {
		dst[a] = b2[a]
	}
	for h := 0; h < hidden; h++ {
		row := w1.Data[h*w1.Stride : h*w1.Stride+inputSize]
		z := b1[h] + row[0]*x[0] + row[1]*x[1]
		if z <= 0 {
			continue
		}
		for a := range dst {
			dst[a] += w2.Data[a*w2.Stride+h] * z
		}
	}
}

// activations of one batched forward pass, kept for backpropagation
type activations struct {
	x  *mat.Dense // batch × input
	z1 *mat.Dense // batch × hidden, pre-activation
	a1 *mat.Dense // batch × hidden, ReLU
	q  *mat.Dense // batch × actions
}

func (n *qNetwork) forward(x *mat.Dense) activations {
	batch, _ := x.Dims()
	hidden, _ := n.w1.Dims()
	actions, _ := n.w2.Dims()

	z1 := mat.NewDense(batch, hidden, nil)
	z1.Mul(x, n.w1.T())
	a1 := mat.NewDense(batch, hidden, nil)
	a1.Apply(func(_, j int, v float64) float64 {
		return math.Max(v+n.b1.AtVec(j), 0)
	}, z1)
	z1.Apply(func(_, j int, v float64) float64 {
		return v + n.b1.AtVec(j)
	}, z1)

	q := mat.NewDense(batch, actions, nil)
	q.Mul(a1, n.w2.T())
	q.Apply(func(_, j int, v float64) float64 {
		return v + n.b2.AtVec(j)
	}, q)

	return activations{x: x, z1: z1, a1: a1, q: q}
}

// backward returns parameter gradients, in params() order, for the loss
// whose gradient with respect to the outputs is dq (batch × actions)
func (n *qNetwork) backward(act activations, dq *mat.Dense) [][]float64 {
	batch, hidden := act.a1.Dims()
	actions, _ := n.w2.Dims()

	var dw2 mat.Dense
	dw2.Mul(dq.T(), act.a1) // actions × hidden
	db2 := make([]float64, actions)
	for a := 0; a < actions; a++ {
		db2[a] = mat.Sum(dq.ColView(a))
	}

	da1 := mat.NewDense(batch, hidden, nil)
	da1.Mul(dq, n.w2) // batch × hidden
	da1.Apply(func(i, j int, v float64) float64 {
		if act.z1.At(i, j) <= 0 {
			return 0
		}
		return v
	}, da1)

	var dw1 mat.Dense
	dw1.Mul(da1.T(), act.x) // hidden × input
	db1 := make([]float64, hidden)
	for h := 0; h < hidden; h++ {
		db1[h] = mat.Sum(da1.ColView(h))
	}

	return [][]float64{dw1.RawMatrix().Data, db1, dw2.RawMatrix().Data, db2}
}
