// Package ml holds the small dense classifier served by the coordinator: a standard
// scaler, a feed-forward network with ReLU hidden layers and a softmax output, and a
// trainer that runs gorgonia's autodiff and Adam solver over the unfrozen layers.
package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation names a layer non-linearity.
type Activation string

const (
	ActivationReLU    Activation = "relu"
	ActivationSoftmax Activation = "softmax"
)

// Layer is a fully connected layer. Weights are stored input x output so a batch
// forward pass is X·W + b.
type Layer struct {
	Weights    *mat.Dense
	Biases     []float64
	Activation Activation
	// Dropout is the fraction of this layer's outputs zeroed during training.
	Dropout   float64
	Trainable bool
}

// In returns the input width.
func (l *Layer) In() int {
	r, _ := l.Weights.Dims()
	return r
}

// Out returns the output width.
func (l *Layer) Out() int {
	_, c := l.Weights.Dims()
	return c
}

func (l *Layer) clone() *Layer {
	return &Layer{
		Weights:    mat.DenseCopyOf(l.Weights),
		Biases:     append([]float64(nil), l.Biases...),
		Activation: l.Activation,
		Dropout:    l.Dropout,
		Trainable:  l.Trainable,
	}
}

// affine computes X·W + b.
func (l *Layer) affine(X mat.Matrix) *mat.Dense {
	var z mat.Dense
	z.Mul(X, l.Weights)
	z.Apply(func(_, j int, v float64) float64 { return v + l.Biases[j] }, &z)
	return &z
}

// Architecture describes a network to build.
type Architecture struct {
	Inputs  int
	Hidden  []int
	Outputs int
	// Dropout is applied after the first hidden layer only.
	Dropout float64
}

// Network is a feed-forward classifier.
type Network struct {
	Layers []*Layer
}

// NewNetwork builds a network with Glorot-uniform weights and zero biases.
func NewNetwork(arch Architecture, rng *rand.Rand) (*Network, error) {
	if arch.Inputs <= 0 || arch.Outputs <= 0 {
		return nil, fmt.Errorf("network needs positive input and output widths, got %d and %d", arch.Inputs, arch.Outputs)
	}
	if arch.Dropout < 0 || arch.Dropout >= 1 {
		return nil, fmt.Errorf("dropout %v out of range [0, 1)", arch.Dropout)
	}

	widths := append([]int{arch.Inputs}, arch.Hidden...)
	widths = append(widths, arch.Outputs)

	net := &Network{}
	for i := 0; i < len(widths)-1; i++ {
		in, out := widths[i], widths[i+1]
		if out <= 0 {
			return nil, fmt.Errorf("layer %d has non-positive width %d", i, out)
		}
		limit := math.Sqrt(6 / float64(in+out))
		data := make([]float64, in*out)
		for k := range data {
			data[k] = (rng.Float64()*2 - 1) * limit
		}
		layer := &Layer{
			Weights:    mat.NewDense(in, out, data),
			Biases:     make([]float64, out),
			Activation: ActivationReLU,
			Trainable:  true,
		}
		if i == 0 && len(arch.Hidden) > 0 {
			layer.Dropout = arch.Dropout
		}
		net.Layers = append(net.Layers, layer)
	}
	net.Layers[len(net.Layers)-1].Activation = ActivationSoftmax
	return net, nil
}

// InputDim returns the expected feature count.
func (n *Network) InputDim() int { return n.Layers[0].In() }

// OutputDim returns the number of classes.
func (n *Network) OutputDim() int { return n.Layers[len(n.Layers)-1].Out() }

// Validate checks the layer chain is consistent and shaped for inputs -> outputs.
func (n *Network) Validate(inputs, outputs int) error {
	if len(n.Layers) == 0 {
		return fmt.Errorf("network has no layers")
	}
	prev := inputs
	for i, l := range n.Layers {
		if l.Weights == nil {
			return fmt.Errorf("layer %d has no weights", i)
		}
		if l.In() != prev {
			return fmt.Errorf("layer %d expects %d inputs, previous layer produces %d", i, l.In(), prev)
		}
		if len(l.Biases) != l.Out() {
			return fmt.Errorf("layer %d has %d biases for %d outputs", i, len(l.Biases), l.Out())
		}
		prev = l.Out()
	}
	if prev != outputs {
		return fmt.Errorf("network produces %d outputs, want %d", prev, outputs)
	}
	if n.Layers[len(n.Layers)-1].Activation != ActivationSoftmax {
		return fmt.Errorf("output layer must be softmax")
	}
	return nil
}

// Clone returns a deep copy that shares no memory with n.
func (n *Network) Clone() *Network {
	out := &Network{Layers: make([]*Layer, len(n.Layers))}
	for i, l := range n.Layers {
		out.Layers[i] = l.clone()
	}
	return out
}

// FreezeUpTo marks layers [0, k) as not trainable and the rest as trainable.
func (n *Network) FreezeUpTo(k int) {
	for i, l := range n.Layers {
		l.Trainable = i >= k
	}
}

// FreezeAllButLast leaves only the output layer trainable.
func (n *Network) FreezeAllButLast() {
	n.FreezeUpTo(len(n.Layers) - 1)
}

// Forward runs inference on a batch and returns an n x classes probability matrix.
// Dropout is never applied here.
func (n *Network) Forward(X mat.Matrix) *mat.Dense {
	var a mat.Matrix = X
	var out *mat.Dense
	for _, l := range n.Layers {
		out = l.affine(a)
		activate(l.Activation, out)
		a = out
	}
	return out
}

// Predict returns the class probabilities for one already scaled observation.
func (n *Network) Predict(x []float64) ([]float64, error) {
	if len(x) != n.InputDim() {
		return nil, fmt.Errorf("network expects %d features, got %d", n.InputDim(), len(x))
	}
	probs := n.Forward(mat.NewDense(1, len(x), append([]float64(nil), x...)))
	return append([]float64(nil), probs.RawRowView(0)...), nil
}

// Argmax returns the index and value of the largest probability.
func Argmax(probs []float64) (int, float64) {
	idx := floats.MaxIdx(probs)
	return idx, probs[idx]
}

func activate(a Activation, z *mat.Dense) {
	switch a {
	case ActivationReLU:
		z.Apply(func(_, _ int, v float64) float64 {
			if v > 0 {
				return v
			}
			return 0
		}, z)
	case ActivationSoftmax:
		rows, _ := z.Dims()
		for i := 0; i < rows; i++ {
			softmaxInPlace(z.RawRowView(i))
		}
	}
}

func softmaxInPlace(row []float64) {
	peak := floats.Max(row)
	var sum float64
	for j, v := range row {
		e := math.Exp(v - peak)
		row[j] = e
		sum += e
	}
	floats.Scale(1/sum, row)
}

// ================================================================================
// Serialization
// ================================================================================

type layerJSON struct {
	Inputs     int        `json:"inputs"`
	Outputs    int        `json:"outputs"`
	Weights    []float64  `json:"weights"`
	Biases     []float64  `json:"biases"`
	Activation Activation `json:"activation"`
	Dropout    float64    `json:"dropout,omitempty"`
	Trainable  bool       `json:"trainable"`
}

type networkJSON struct {
	Format string      `json:"format"`
	Layers []layerJSON `json:"layers"`
}

const networkFormat = "riskserve.mlp/v1"

func (n *Network) MarshalJSON() ([]byte, error) {
	doc := networkJSON{Format: networkFormat, Layers: make([]layerJSON, len(n.Layers))}
	for i, l := range n.Layers {
		weights := make([]float64, 0, l.In()*l.Out())
		for r := 0; r < l.In(); r++ {
			weights = append(weights, l.Weights.RawRowView(r)...)
		}
		doc.Layers[i] = layerJSON{
			Inputs:     l.In(),
			Outputs:    l.Out(),
			Weights:    weights,
			Biases:     l.Biases,
			Activation: l.Activation,
			Dropout:    l.Dropout,
			Trainable:  l.Trainable,
		}
	}
	return json.Marshal(doc)
}

func (n *Network) UnmarshalJSON(data []byte) error {
	var doc networkJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Format != networkFormat {
		return fmt.Errorf("unsupported network format %q", doc.Format)
	}
	layers := make([]*Layer, len(doc.Layers))
	for i, l := range doc.Layers {
		if l.Inputs <= 0 || l.Outputs <= 0 || len(l.Weights) != l.Inputs*l.Outputs || len(l.Biases) != l.Outputs {
			return fmt.Errorf("layer %d is malformed", i)
		}
		switch l.Activation {
		case ActivationReLU, ActivationSoftmax:
		default:
			return fmt.Errorf("layer %d has unknown activation %q", i, l.Activation)
		}
		layers[i] = &Layer{
			Weights:    mat.NewDense(l.Inputs, l.Outputs, l.Weights),
			Biases:     l.Biases,
			Activation: l.Activation,
			Dropout:    l.Dropout,
			Trainable:  l.Trainable,
		}
	}
	n.Layers = layers
	return nil
}
