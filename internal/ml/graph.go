package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// paramRef locates a solver parameter inside the Network.
type paramRef struct {
	layer int
	bias  bool
}

// batchGraph is the expression graph of one training step.
type batchGraph struct {
	g *G.ExprGraph
	// params holds the weights then the bias of every trainable layer, in layer order,
	// so the solver's positional state lines up across batches.
	params   G.Nodes
	owners   []paramRef
	cost     *G.Node
	logProbs G.Value
}

// step runs one mini-batch: a training-mode forward pass, reverse-mode gradients of the
// mean cross-entropy and one solver update. Updated parameters are copied back into net.
func (t *Trainer) step(net *Network, solver G.Solver, xb *mat.Dense, yb []int) (float64, int, error) {
	bg, err := t.buildGraph(net, xb, yb)
	if err != nil {
		return 0, 0, err
	}

	var opts []G.VMOpt
	if len(bg.params) > 0 {
		if _, err := G.Grad(bg.cost, bg.params...); err != nil {
			return 0, 0, fmt.Errorf("gradient: %w", err)
		}
		opts = append(opts, G.BindDualValues(bg.params...))
	}
	vm := G.NewTapeMachine(bg.g, opts...)
	defer vm.Close()

	if err := vm.RunAll(); err != nil {
		return 0, 0, fmt.Errorf("forward pass: %w", err)
	}
	loss, hits, err := sparseLoss(bg.logProbs, yb, net.OutputDim())
	if err != nil {
		return 0, 0, err
	}
	if len(bg.params) == 0 {
		return loss, hits, nil
	}

	if err := solver.Step(G.NodesToValueGrads(bg.params)); err != nil {
		return 0, 0, fmt.Errorf("solver step: %w", err)
	}
	bg.writeBack(net)
	return loss, hits, nil
}

func (t *Trainer) buildGraph(net *Network, xb *mat.Dense, yb []int) (*batchGraph, error) {
	rows, cols := xb.Dims()
	classes := net.OutputDim()
	last := len(net.Layers) - 1

	g := G.NewGraph()
	bg := &batchGraph{g: g}

	// ones·b repeats the bias row for every sample
	ones := G.NewMatrix(g, tensor.Float64, G.WithShape(rows, 1), G.WithName("ones_batch"),
		G.WithValue(tensor.Ones(tensor.Float64, rows, 1)))
	a := G.NewMatrix(g, tensor.Float64, G.WithShape(rows, cols), G.WithName("x"), G.WithValue(denseTensor(xb)))

	var logits *G.Node
	for i, l := range net.Layers {
		if i < last && l.Activation != ActivationReLU {
			return nil, fmt.Errorf("hidden layer %d has unsupported activation %q", i, l.Activation)
		}
		w := G.NewMatrix(g, tensor.Float64, G.WithShape(l.In(), l.Out()), G.WithName(fmt.Sprintf("w%d", i)),
			G.WithValue(denseTensor(l.Weights)))
		b := G.NewMatrix(g, tensor.Float64, G.WithShape(1, l.Out()), G.WithName(fmt.Sprintf("b%d", i)),
			G.WithValue(tensor.New(tensor.WithShape(1, l.Out()), tensor.WithBacking(append([]float64(nil), l.Biases...)))))
		if l.Trainable {
			bg.params = append(bg.params, w, b)
			bg.owners = append(bg.owners, paramRef{layer: i}, paramRef{layer: i, bias: true})
		}

		z := G.Must(G.Add(G.Must(G.Mul(a, w)), G.Must(G.Mul(ones, b))))
		if i == last {
			logits = z
			break
		}
		a = G.Must(G.Rectify(z))
		if l.Dropout > 0 {
			mask := G.NewMatrix(g, tensor.Float64, G.WithShape(rows, l.Out()), G.WithName(fmt.Sprintf("dropout%d", i)),
				G.WithValue(denseTensor(t.dropoutMask(rows, l.Out(), l.Dropout))))
			a = G.Must(G.HadamardProd(a, mask))
		}
	}

	// log-softmax: logits minus the log of the row sums, expanded back to rows x classes
	sumCol := G.NewMatrix(g, tensor.Float64, G.WithShape(classes, 1), G.WithName("ones_classes"),
		G.WithValue(tensor.Ones(tensor.Float64, classes, 1)))
	spread := G.NewMatrix(g, tensor.Float64, G.WithShape(1, classes), G.WithName("ones_spread"),
		G.WithValue(tensor.Ones(tensor.Float64, 1, classes)))
	exp := G.Must(G.Exp(logits))
	sums := G.Must(G.Mul(G.Must(G.Mul(exp, sumCol)), spread))
	logProbs := G.Must(G.Sub(logits, G.Must(G.Log(sums))))
	G.Read(logProbs, &bg.logProbs)

	// one-hot targets pre-divided by the batch size make the sum a mean
	target := make([]float64, rows*classes)
	for i, label := range yb {
		target[i*classes+label] = 1 / float64(rows)
	}
	targets := G.NewMatrix(g, tensor.Float64, G.WithShape(rows, classes), G.WithName("targets"),
		G.WithValue(tensor.New(tensor.WithShape(rows, classes), tensor.WithBacking(target))))
	bg.cost = G.Must(G.Neg(G.Must(G.Sum(G.Must(G.HadamardProd(logProbs, targets))))))
	return bg, nil
}

func (bg *batchGraph) writeBack(net *Network) {
	for k, n := range bg.params {
		data := n.Value().Data().([]float64)
		ref := bg.owners[k]
		l := net.Layers[ref.layer]
		if ref.bias {
			copy(l.Biases, data)
			continue
		}
		copy(l.Weights.RawMatrix().Data, data)
	}
}

// sparseLoss returns the mean negative log-likelihood of the labels and the number of
// rows whose most likely class is the label.
func sparseLoss(logProbs G.Value, y []int, classes int) (float64, int, error) {
	if logProbs == nil {
		return 0, 0, fmt.Errorf("forward pass produced no output")
	}
	data, ok := logProbs.Data().([]float64)
	if !ok || len(data) != len(y)*classes {
		return 0, 0, fmt.Errorf("unexpected output shape %v", logProbs.Shape())
	}
	var sum float64
	var hits int
	for i, label := range y {
		row := data[i*classes : (i+1)*classes]
		sum -= row[label]
		if floats.MaxIdx(row) == label {
			hits++
		}
	}
	return sum / float64(len(y)), hits, nil
}

// dropoutMask draws an inverted-dropout mask: kept units are scaled by 1/(1-rate).
func (t *Trainer) dropoutMask(rows, cols int, rate float64) *mat.Dense {
	keep := 1 / (1 - rate)
	data := make([]float64, rows*cols)
	for k := range data {
		if t.rng.Float64() >= rate {
			data[k] = keep
		}
	}
	return mat.NewDense(rows, cols, data)
}

func denseTensor(m *mat.Dense) *tensor.Dense {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return tensor.New(tensor.WithShape(r, c), tensor.WithBacking(data))
}
