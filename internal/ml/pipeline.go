package ml

import (
	"context"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// BaselineConfig configures the initial training run.
type BaselineConfig struct {
	Hidden       []int
	Dropout      float64
	Epochs       int
	BatchSize    int
	LearningRate float64
	TestRatio    float64
	Seed         int64
	Classes      int
}

// BaselineResult is a freshly trained (network, scaler) pair plus its held-out metrics.
type BaselineResult struct {
	Network      *Network
	Scaler       *StandardScaler
	History      History
	TestLoss     float64
	TestAccuracy float64
	TrainRows    int
	TestRows     int
}

// TrainBaseline fits the scaler on every row, splits train/test, trains a new network
// on the training rows and evaluates it on the held-out rows.
func TrainBaseline(ctx context.Context, ds *Dataset, cfg BaselineConfig) (*BaselineResult, error) {
	scaler, err := FitScaler(ds.X)
	if err != nil {
		return nil, err
	}
	scaled, err := ds.Transform(scaler)
	if err != nil {
		return nil, err
	}
	train, test, err := scaled.Split(cfg.TestRatio, cfg.Seed)
	if err != nil {
		return nil, err
	}

	_, inputs := ds.X.Dims()
	net, err := NewNetwork(Architecture{
		Inputs:  inputs,
		Hidden:  cfg.Hidden,
		Outputs: cfg.Classes,
		Dropout: cfg.Dropout,
	}, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, err
	}

	trainer, err := NewTrainer(TrainConfig{
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	history, err := trainer.Fit(ctx, net, train.X, train.Y)
	if err != nil {
		return nil, err
	}

	loss, acc, err := Evaluate(net, test.X, test.Y)
	if err != nil {
		return nil, err
	}
	return &BaselineResult{
		Network:      net,
		Scaler:       scaler,
		History:      history,
		TestLoss:     loss,
		TestAccuracy: acc,
		TrainRows:    train.Len(),
		TestRows:     test.Len(),
	}, nil
}

// FineTuneConfig configures a single-example correction step.
type FineTuneConfig struct {
	Epochs       int
	LearningRate float64
	Seed         int64
}

// FineTune clones parent, freezes every layer but the output layer and trains the clone
// on one scaled observation. parent is never modified.
func FineTune(ctx context.Context, parent *Network, scaled []float64, label int, cfg FineTuneConfig) (*Network, History, error) {
	if len(scaled) != parent.InputDim() {
		return nil, nil, fmt.Errorf("network expects %d features, got %d", parent.InputDim(), len(scaled))
	}
	child := parent.Clone()
	child.FreezeAllButLast()

	trainer, err := NewTrainer(TrainConfig{
		Epochs:       cfg.Epochs,
		BatchSize:    1,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
	})
	if err != nil {
		return nil, nil, err
	}
	X := mat.NewDense(1, len(scaled), append([]float64(nil), scaled...))
	history, err := trainer.Fit(ctx, child, X, []int{label})
	if err != nil {
		return nil, nil, err
	}
	return child, history, nil
}
