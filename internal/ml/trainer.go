package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7

	// probabilities are clipped before the log so a confident miss yields a finite loss
	probFloor = 1e-7
)

// TrainConfig controls a call to Trainer.Fit.
type TrainConfig struct {
	Epochs       int
	BatchSize    int // <= 0 trains on the full batch
	LearningRate float64
	Seed         int64
}

// EpochStats are the training metrics of one epoch.
type EpochStats struct {
	Epoch    int     `json:"epoch"`
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// History is the per-epoch record of a Fit call.
type History []EpochStats

// Final returns the stats of the last epoch.
func (h History) Final() EpochStats {
	if len(h) == 0 {
		return EpochStats{}
	}
	return h[len(h)-1]
}

// Trainer fits a Network with mini-batch Adam on sparse categorical cross-entropy.
// Gradients and the optimizer come from gorgonia; only layers marked Trainable are
// handed to the solver, frozen layers still pass gradients through.
type Trainer struct {
	cfg TrainConfig
	rng *rand.Rand
}

// NewTrainer creates a trainer. The seed drives batch shuffling and dropout masks.
func NewTrainer(cfg TrainConfig) (*Trainer, error) {
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("epochs must be positive, got %d", cfg.Epochs)
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %v", cfg.LearningRate)
	}
	return &Trainer{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// Fit trains net in place on (X, y) and returns the per-epoch history.
// Optimizer state starts fresh on every call.
func (t *Trainer) Fit(ctx context.Context, net *Network, X *mat.Dense, y []int) (History, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, fmt.Errorf("cannot train on an empty batch")
	}
	if rows != len(y) {
		return nil, fmt.Errorf("feature rows (%d) and labels (%d) differ", rows, len(y))
	}
	if cols != net.InputDim() {
		return nil, fmt.Errorf("network expects %d features, got %d", net.InputDim(), cols)
	}
	for i, label := range y {
		if label < 0 || label >= net.OutputDim() {
			return nil, fmt.Errorf("label %d at row %d outside [0, %d)", label, i, net.OutputDim())
		}
	}

	batchSize := t.cfg.BatchSize
	if batchSize <= 0 || batchSize > rows {
		batchSize = rows
	}

	solver := G.NewAdamSolver(
		G.WithLearnRate(t.cfg.LearningRate),
		G.WithBeta1(adamBeta1),
		G.WithBeta2(adamBeta2),
		G.WithEps(adamEpsilon),
	)
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}

	history := make(History, 0, t.cfg.Epochs)
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}
		t.rng.Shuffle(rows, func(i, j int) { order[i], order[j] = order[j], order[i] })

		var lossSum float64
		var correct int
		for start := 0; start < rows; start += batchSize {
			end := start + batchSize
			if end > rows {
				end = rows
			}
			xb, yb := gatherBatch(X, y, order[start:end])
			loss, hits, err := t.step(net, solver, xb, yb)
			if err != nil {
				return history, fmt.Errorf("epoch %d: %w", epoch, err)
			}
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return history, fmt.Errorf("loss diverged at epoch %d", epoch)
			}
			lossSum += loss * float64(len(yb))
			correct += hits
		}
		history = append(history, EpochStats{
			Epoch:    epoch,
			Loss:     lossSum / float64(rows),
			Accuracy: float64(correct) / float64(rows),
		})
	}
	return history, nil
}

// Evaluate computes the mean cross-entropy and accuracy of net on (X, y) in inference mode.
func Evaluate(net *Network, X mat.Matrix, y []int) (loss, accuracy float64, err error) {
	rows, _ := X.Dims()
	if rows == 0 || rows != len(y) {
		return 0, 0, fmt.Errorf("evaluation needs matching non-empty rows and labels, got %d and %d", rows, len(y))
	}
	probs := net.Forward(X)
	l, hits := crossEntropy(probs, y)
	return l, float64(hits) / float64(rows), nil
}

func gatherBatch(X *mat.Dense, y []int, idx []int) (*mat.Dense, []int) {
	_, cols := X.Dims()
	xb := mat.NewDense(len(idx), cols, nil)
	yb := make([]int, len(idx))
	for i, src := range idx {
		xb.SetRow(i, X.RawRowView(src))
		yb[i] = y[src]
	}
	return xb, yb
}

// crossEntropy returns the mean sparse categorical cross-entropy and the number of rows
// whose argmax equals the label.
func crossEntropy(probs *mat.Dense, y []int) (float64, int) {
	var sum float64
	var hits int
	for i, label := range y {
		row := probs.RawRowView(i)
		sum -= math.Log(math.Max(row[label], probFloor))
		if floats.MaxIdx(row) == label {
			hits++
		}
	}
	return sum / float64(len(y)), hits
}

