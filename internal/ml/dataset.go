package ml

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/riskserve/internal/domain/models"
)

// Label columns understood by LoadDataset. The numeric column wins when both exist.
const (
	LabelColumnNumeric = "Risk_Num"
	LabelColumnText    = "RiskLevel"
)

// Dataset is a feature matrix in models.FeatureNames order with integer class labels.
type Dataset struct {
	X *mat.Dense
	Y []int
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Y) }

// LoadDatasetFile opens path and reads it with LoadDataset.
func LoadDatasetFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return LoadDataset(f)
}

// LoadDataset reads a CSV with a header row. Feature columns are located by name;
// extra columns are ignored. Labels come from Risk_Num (0..2) or, failing that,
// from RiskLevel ("low risk", "mid risk", "high risk").
func LoadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	featureCols := make([]int, len(models.FeatureNames))
	for i, name := range models.FeatureNames {
		col, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("dataset is missing feature column %q", name)
		}
		featureCols[i] = col
	}

	numericCol, hasNumeric := index[LabelColumnNumeric]
	textCol, hasText := index[LabelColumnText]
	if !hasNumeric && !hasText {
		return nil, fmt.Errorf("dataset needs a %q or %q column", LabelColumnNumeric, LabelColumnText)
	}

	var data []float64
	var labels []int
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read dataset line %d: %w", line, err)
		}

		for i, col := range featureCols {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, models.FeatureNames[i], err)
			}
			data = append(data, v)
		}

		var label int
		if hasNumeric {
			label, err = strconv.Atoi(strings.TrimSpace(record[numericCol]))
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, LabelColumnNumeric, err)
			}
			if _, ok := models.RiskLevelFromIndex(label); !ok {
				return nil, fmt.Errorf("line %d: label %d out of range", line, label)
			}
		} else {
			level, err := models.ParseRiskLevel(record[textCol])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			label = level.Index()
		}
		labels = append(labels, label)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}
	return &Dataset{
		X: mat.NewDense(len(labels), len(models.FeatureNames), data),
		Y: labels,
	}, nil
}

// Split shuffles rows with the given seed and returns (train, test) where test holds
// round(testRatio * rows) rows, at least one.
func (d *Dataset) Split(testRatio float64, seed int64) (*Dataset, *Dataset, error) {
	rows := d.Len()
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %v out of range (0, 1)", testRatio)
	}
	nTest := int(float64(rows)*testRatio + 0.5)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= rows {
		return nil, nil, fmt.Errorf("dataset of %d rows is too small to split", rows)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(rows)
	test := d.subset(perm[:nTest])
	train := d.subset(perm[nTest:])
	return train, test, nil
}

// Transform returns a copy of the dataset with features scaled by s.
func (d *Dataset) Transform(s *StandardScaler) (*Dataset, error) {
	X, err := s.Transform(d.X)
	if err != nil {
		return nil, err
	}
	return &Dataset{X: X, Y: append([]int(nil), d.Y...)}, nil
}

func (d *Dataset) subset(idx []int) *Dataset {
	X, y := gatherBatch(d.X, d.Y, idx)
	return &Dataset{X: X, Y: y}
}
