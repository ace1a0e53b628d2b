package ml

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler removes the per-feature mean and scales to unit variance.
// The standard deviation is the population one; constant features get a scale of 1.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

type scalerJSON struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes the mean and standard deviation of every column of X.
func FitScaler(X mat.Matrix) (*StandardScaler, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("cannot fit scaler on an empty matrix")
	}

	s := &StandardScaler{
		Mean:  make([]float64, cols),
		Scale: make([]float64, cols),
	}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Dim returns the number of features the scaler was fitted on.
func (s *StandardScaler) Dim() int { return len(s.Mean) }

// Validate checks the scaler is internally consistent and usable for dim features.
func (s *StandardScaler) Validate(dim int) error {
	if len(s.Mean) != dim || len(s.Scale) != dim {
		return fmt.Errorf("scaler has %d/%d parameters, want %d", len(s.Mean), len(s.Scale), dim)
	}
	for j, sc := range s.Scale {
		if sc <= 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return fmt.Errorf("scaler scale[%d]=%v is not a positive finite number", j, sc)
		}
	}
	return nil
}

// TransformVector scales one observation.
func (s *StandardScaler) TransformVector(v []float64) ([]float64, error) {
	if len(v) != s.Dim() {
		return nil, fmt.Errorf("scaler expects %d features, got %d", s.Dim(), len(v))
	}
	out := make([]float64, len(v))
	for j, x := range v {
		out[j] = (x - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Transform scales every row of X into a new matrix.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	_, cols := X.Dims()
	if cols != s.Dim() {
		return nil, fmt.Errorf("scaler expects %d features, got %d", s.Dim(), cols)
	}
	out := mat.DenseCopyOf(X)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, out)
	return out, nil
}

// Clone returns a deep copy.
func (s *StandardScaler) Clone() *StandardScaler {
	return &StandardScaler{
		Mean:  append([]float64(nil), s.Mean...),
		Scale: append([]float64(nil), s.Scale...),
	}
}

func (s *StandardScaler) MarshalJSON() ([]byte, error) {
	return json.Marshal(scalerJSON{Mean: s.Mean, Scale: s.Scale})
}

func (s *StandardScaler) UnmarshalJSON(data []byte) error {
	var raw scalerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Mean) != len(raw.Scale) {
		return fmt.Errorf("scaler mean and scale lengths differ: %d != %d", len(raw.Mean), len(raw.Scale))
	}
	s.Mean, s.Scale = raw.Mean, raw.Scale
	return nil
}
