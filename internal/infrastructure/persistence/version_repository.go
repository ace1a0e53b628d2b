package persistence

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/domain/repository"
	"github.com/turtacn/riskserve/pkg/errors"
)

// VersionRepository is a gorm implementation of the VersionRepository interface.
type VersionRepository struct {
	conn *DBConnection
}

// NewVersionRepository creates a new VersionRepository.
func NewVersionRepository(conn *DBConnection) repository.VersionRepository {
	return &VersionRepository{conn: conn}
}

// Register inserts the version row together with its params and metrics in one transaction.
func (r *VersionRepository) Register(ctx context.Context, version *models.ModelVersion) error {
	rec := toRecord(version)
	err := r.conn.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	if err != nil {
		return errors.ArtifactStore("register", version.ID, err)
	}
	return nil
}

// Latest retrieves the newest version of an experiment.
// If none exists it returns (nil, nil).
func (r *VersionRepository) Latest(ctx context.Context, experiment string) (*models.ModelVersion, error) {
	var rec modelVersionRecord
	err := r.preloaded(ctx).
		Where("experiment = ?", experiment).
		Order("version_id DESC").
		First(&rec).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.ArtifactStore("latest", "", err)
	}
	return rec.toModel(), nil
}

// List retrieves every version of an experiment, oldest first.
func (r *VersionRepository) List(ctx context.Context, experiment string) ([]*models.ModelVersion, error) {
	var recs []modelVersionRecord
	err := r.preloaded(ctx).
		Where("experiment = ?", experiment).
		Order("version_id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, errors.ArtifactStore("list", "", err)
	}
	out := make([]*models.ModelVersion, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

// Get retrieves one version by id.
func (r *VersionRepository) Get(ctx context.Context, versionID string) (*models.ModelVersion, error) {
	var rec modelVersionRecord
	err := r.preloaded(ctx).Where("version_id = ?", versionID).First(&rec).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("version", versionID)
	}
	if err != nil {
		return nil, errors.ArtifactStore("get", versionID, err)
	}
	return rec.toModel(), nil
}

// DeleteExperiment removes every version row of the experiment with its params and metrics.
func (r *VersionRepository) DeleteExperiment(ctx context.Context, experiment string) error {
	err := r.conn.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&modelVersionRecord{}).Select("version_id").Where("experiment = ?", experiment)
		if err := tx.Where("version_id IN (?)", ids).Delete(&versionParamRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id IN (?)", ids).Delete(&versionMetricRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("experiment = ?", experiment).Delete(&modelVersionRecord{}).Error
	})
	if err != nil {
		return errors.ArtifactStore("delete", "", err)
	}
	return nil
}

// Ping checks the database connection.
func (r *VersionRepository) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx)
}

func (r *VersionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.conn.db.WithContext(ctx).Preload("Params").Preload("Metrics")
}

//Personal.AI order the ending
