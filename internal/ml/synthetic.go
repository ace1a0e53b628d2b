package ml

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/riskserve/internal/domain/models"
)

// SyntheticDataset draws n observations uniformly inside models.FeatureRanges and labels
// them with a fixed blood pressure / blood sugar rule. It backs demo bootstrapping and tests.
func SyntheticDataset(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, 0, n*models.NumFeatures)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		row := make([]float64, models.NumFeatures)
		for j, name := range models.FeatureNames {
			r := models.FeatureRanges[name]
			row[j] = r.Min + rng.Float64()*(r.Max-r.Min)
		}
		labels[i] = syntheticLabel(row).Index()
		data = append(data, row...)
	}
	return &Dataset{X: mat.NewDense(n, models.NumFeatures, data), Y: labels}
}

func syntheticLabel(row []float64) models.RiskLevel {
	systolic, bs := row[1], row[3]
	switch {
	case systolic >= 150 || bs >= 13:
		return models.RiskHigh
	case systolic >= 110 || bs >= 7:
		return models.RiskMid
	default:
		return models.RiskLow
	}
}
