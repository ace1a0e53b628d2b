package persistence

import (
	"time"

	"github.com/turtacn/riskserve/internal/domain/models"
)

type modelVersionRecord struct {
	VersionID  string                `gorm:"primaryKey;size:64"`
	Experiment string                `gorm:"size:128;not null;index"`
	ParentID   string                `gorm:"size:64"`
	CreatedAt  time.Time             `gorm:"not null"`
	Params     []versionParamRecord  `gorm:"foreignKey:VersionID;references:VersionID;constraint:OnDelete:CASCADE"`
	Metrics    []versionMetricRecord `gorm:"foreignKey:VersionID;references:VersionID;constraint:OnDelete:CASCADE"`
}

func (modelVersionRecord) TableName() string { return "model_versions" }

type versionParamRecord struct {
	ID        uint   `gorm:"primaryKey"`
	VersionID string `gorm:"size:64;not null;index"`
	Name      string `gorm:"size:128;not null"`
	Value     string `gorm:"not null"`
}

func (versionParamRecord) TableName() string { return "version_params" }

type versionMetricRecord struct {
	ID        uint    `gorm:"primaryKey"`
	VersionID string  `gorm:"size:64;not null;index"`
	Name      string  `gorm:"size:128;not null"`
	Value     float64 `gorm:"not null"`
}

func (versionMetricRecord) TableName() string { return "version_metrics" }

func toRecord(v *models.ModelVersion) *modelVersionRecord {
	rec := &modelVersionRecord{
		VersionID:  v.ID,
		Experiment: v.Experiment,
		ParentID:   v.ParentID,
		CreatedAt:  v.CreatedAt.UTC(),
	}
	for name, value := range v.Params {
		rec.Params = append(rec.Params, versionParamRecord{VersionID: v.ID, Name: name, Value: value})
	}
	for name, value := range v.Metrics {
		rec.Metrics = append(rec.Metrics, versionMetricRecord{VersionID: v.ID, Name: name, Value: value})
	}
	return rec
}

func (r *modelVersionRecord) toModel() *models.ModelVersion {
	v := &models.ModelVersion{
		ID:         r.VersionID,
		Experiment: r.Experiment,
		ParentID:   r.ParentID,
		CreatedAt:  r.CreatedAt.UTC(),
		Params:     make(map[string]string, len(r.Params)),
		Metrics:    make(map[string]float64, len(r.Metrics)),
	}
	for _, p := range r.Params {
		v.Params[p.Name] = p.Value
	}
	for _, m := range r.Metrics {
		v.Metrics[m.Name] = m.Value
	}
	return v
}
