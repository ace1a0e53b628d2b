// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/domain/repository"
	domainService "github.com/turtacn/riskserve/internal/domain/service"
	"github.com/turtacn/riskserve/internal/ml"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

const (
	resultSuccess = "success"
	resultError   = "error"
	resultEmpty   = "empty"
)

// Snapshot is the (network, scaler, version) triple that serves predictions.
// A snapshot is never modified after it is published.
type Snapshot struct {
	Network   *ml.Network
	Scaler    *ml.StandardScaler
	VersionID string
	LoadedAt  time.Time
}

// CoordinatorConfig holds the fine-tune hyperparameters.
type CoordinatorConfig struct {
	FineTuneEpochs       int
	FineTuneLearningRate float64
	Seed                 int64
}

// Coordinator owns the active model snapshot. It loads the newest version from the
// artifact store, serves predictions against it and turns operator corrections into
// new versions.
// Coordinator 持有当前模型快照，负责加载、预测与纠正微调。
type Coordinator struct {
	store   repository.ArtifactStore
	cfg     CoordinatorConfig
	metrics domainService.Metrics
	events  domainService.EventPublisher
	pointer domainService.PointerPublisher
	tracer  trace.Tracer
	logger  logger.Logger

	active    atomic.Pointer[Snapshot]
	loads     singleflight.Group
	correctMu sync.Mutex
}

// NewCoordinator creates a coordinator with no snapshot loaded.
// Nil collaborators are replaced by no-op implementations.
func NewCoordinator(
	store repository.ArtifactStore,
	cfg CoordinatorConfig,
	metrics domainService.Metrics,
	events domainService.EventPublisher,
	pointer domainService.PointerPublisher,
	tracer trace.Tracer,
	log logger.Logger,
) *Coordinator {
	if cfg.FineTuneEpochs <= 0 {
		cfg.FineTuneEpochs = constants.DefaultFineTuneEpochs
	}
	if cfg.FineTuneLearningRate <= 0 {
		cfg.FineTuneLearningRate = constants.DefaultFineTuneLearningRate
	}
	if metrics == nil {
		metrics = domainService.NewNoopMetrics()
	}
	if events == nil {
		events = domainService.NewNoopEventPublisher()
	}
	if pointer == nil {
		pointer = domainService.NewNoopPointerPublisher()
	}
	if tracer == nil {
		tracer = otel.Tracer("github.com/turtacn/riskserve")
	}
	return &Coordinator{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		events:  events,
		pointer: pointer,
		tracer:  tracer,
		logger:  log.WithComponent("Coordinator"),
	}
}

// Active returns the serving snapshot, nil before the first successful load.
func (c *Coordinator) Active() *Snapshot {
	return c.active.Load()
}

// VersionID returns the id of the serving version, "" before the first load.
func (c *Coordinator) VersionID() string {
	if snap := c.active.Load(); snap != nil {
		return snap.VersionID
	}
	return ""
}

// Ready reports whether a snapshot is loaded.
func (c *Coordinator) Ready() bool {
	return c.active.Load() != nil
}

// LoadLatest loads the newest registered version and makes it active.
// Concurrent calls share one store round trip. The active snapshot never moves to an
// older version; if the store holds nothing newer the current snapshot is returned.
// With an empty store a not-ready error is returned and state is unchanged.
// A caller whose ctx ends stops waiting; the shared load keeps running for the others.
func (c *Coordinator) LoadLatest(ctx context.Context) (*Snapshot, error) {
	ch := c.loads.DoChan("latest", func() (interface{}, error) {
		return c.loadLatest(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) loadLatest(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	latest, err := c.store.Latest(ctx)
	if err != nil {
		c.metrics.RecordModelLoad(resultError, time.Since(start))
		c.logger.Error(ctx, "Failed to query latest version", err)
		return nil, err
	}
	if latest == nil {
		c.metrics.RecordModelLoad(resultEmpty, time.Since(start))
		return nil, errors.NotReady("no model version has been registered")
	}

	if cur := c.active.Load(); cur != nil && !latest.NewerThan(cur.VersionID) {
		return cur, nil
	}

	net, scaler, err := c.store.Fetch(ctx, latest.ID)
	if err != nil {
		c.metrics.RecordModelLoad(resultError, time.Since(start))
		c.logger.Error(ctx, "Failed to fetch version artifacts", err, logger.Fields{"version_id": latest.ID})
		return nil, err
	}

	snap, installed := c.install(&Snapshot{
		Network:   net,
		Scaler:    scaler,
		VersionID: latest.ID,
		LoadedAt:  time.Now().UTC(),
	})
	c.metrics.RecordModelLoad(resultSuccess, time.Since(start))
	if installed {
		c.logger.Info(ctx, "Loaded model version", logger.Fields{"version_id": snap.VersionID})
		c.publish(ctx, domainService.LifecycleEvent{Type: constants.EventVersionActivated, VersionID: snap.VersionID})
	}
	return snap, nil
}

// ReloadIfNewer loads the latest version unless versionID is already covered by the
// active snapshot. An empty versionID always checks the store. It is the hook for the
// artifact watcher and the redis and kafka notifications.
func (c *Coordinator) ReloadIfNewer(ctx context.Context, versionID string) error {
	if cur := c.active.Load(); cur != nil && versionID != "" && !models.VersionNewer(versionID, cur.VersionID) {
		return nil
	}
	_, err := c.LoadLatest(ctx)
	if errors.Is(err, errors.ErrNotReady) {
		return nil
	}
	return err
}

// install publishes snap unless the active snapshot is the same or a newer version.
func (c *Coordinator) install(snap *Snapshot) (*Snapshot, bool) {
	for {
		cur := c.active.Load()
		if cur != nil && !models.VersionNewer(snap.VersionID, cur.VersionID) {
			return cur, false
		}
		if c.active.CompareAndSwap(cur, snap) {
			c.metrics.SetActiveVersion(snap.VersionID)
			return snap, true
		}
	}
}

// EnsureLoaded makes sure a version is active, loading the latest one if needed.
// It fails with a not-ready error while the store is empty.
func (c *Coordinator) EnsureLoaded(ctx context.Context) error {
	if c.Ready() {
		return nil
	}
	_, err := c.LoadLatest(ctx)
	return err
}

// Predict classifies one feature vector with the active snapshot, loading the latest
// version first if nothing is loaded yet. It never modifies state other than that load.
func (c *Coordinator) Predict(ctx context.Context, features models.PatientFeatures) (*models.Prediction, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "coordinator.predict")
	defer span.End()

	snap := c.active.Load()
	if snap == nil {
		var err error
		if snap, err = c.LoadLatest(ctx); err != nil {
			c.metrics.RecordPrediction("", resultError, time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	prediction, err := predictWith(snap, features)
	if err != nil {
		c.metrics.RecordPrediction("", resultError, time.Since(start))
		c.logger.Error(ctx, "Prediction failed", err, logger.Fields{"version_id": snap.VersionID})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Internal("prediction failed", err)
	}

	span.SetAttributes(
		attribute.String("model.version_id", snap.VersionID),
		attribute.String("prediction.risk_level", prediction.RiskLevel.String()),
	)
	c.metrics.RecordPrediction(prediction.RiskLevel.String(), resultSuccess, time.Since(start))
	return prediction, nil
}

func predictWith(snap *Snapshot, features models.PatientFeatures) (*models.Prediction, error) {
	x, err := snap.Scaler.TransformVector(features.Vector())
	if err != nil {
		return nil, err
	}
	probs, err := snap.Network.Predict(x)
	if err != nil {
		return nil, err
	}
	idx, confidence := ml.Argmax(probs)
	level, ok := models.RiskLevelFromIndex(idx)
	if !ok {
		return nil, errors.IncompatibleModel("network produced an unknown class index")
	}
	return &models.Prediction{
		RiskLevel:     level,
		Confidence:    confidence,
		Probabilities: probs,
		VersionID:     snap.VersionID,
	}, nil
}

// SubmitCorrection parses label and runs one correction synchronously.
// An unknown label is rejected before any work is done.
func (c *Coordinator) SubmitCorrection(ctx context.Context, features models.PatientFeatures, label string) (*models.ModelVersion, error) {
	corr, err := models.NewCorrection(features, label)
	if err != nil {
		c.logger.Warn(ctx, "Rejected correction", logger.Fields{"label": label, "error": err.Error()})
		return nil, err
	}
	return c.ApplyCorrection(ctx, corr)
}

// ApplyCorrection fine-tunes a copy of the active network on the correction, persists
// it as a new version and makes that version active. Corrections run one at a time.
// On any failure the active snapshot is left untouched.
// ApplyCorrection 在当前网络的副本上微调，持久化新版本后切换。
func (c *Coordinator) ApplyCorrection(ctx context.Context, corr *models.Correction) (*models.ModelVersion, error) {
	c.correctMu.Lock()
	defer c.correctMu.Unlock()

	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "coordinator.fine_tune", trace.WithAttributes(
		attribute.String("correction.id", corr.ID),
		attribute.String("correction.label", corr.Label.String()),
	))
	defer span.End()

	log := c.logger.WithFields(logger.Fields{"correction_id": corr.ID, "label": corr.Label.String()})

	parent := c.active.Load()
	if parent == nil {
		var err error
		if parent, err = c.LoadLatest(ctx); err != nil {
			return nil, c.failCorrection(ctx, span, log, corr, "", start, err)
		}
	}

	scaled, err := parent.Scaler.TransformVector(corr.Features.Vector())
	if err != nil {
		return nil, c.failCorrection(ctx, span, log, corr, parent.VersionID, start, errors.TrainingFailed(err))
	}

	child, history, err := ml.FineTune(ctx, parent.Network, scaled, corr.Label.Index(), ml.FineTuneConfig{
		Epochs:       c.cfg.FineTuneEpochs,
		LearningRate: c.cfg.FineTuneLearningRate,
		Seed:         c.cfg.Seed,
	})
	if err != nil {
		return nil, c.failCorrection(ctx, span, log, corr, parent.VersionID, start, errors.TrainingFailed(err))
	}
	final := history.Final()
	c.metrics.RecordFineTune(final.Loss, final.Accuracy)

	persistCtx, persistSpan := c.tracer.Start(ctx, "artifact.persist")
	version, err := c.store.Persist(persistCtx, child, parent.Scaler, repository.PersistRequest{
		ParentID: parent.VersionID,
		Params: map[string]string{
			constants.ParamEvent:         constants.EventUserCorrection,
			constants.ParamTriggerLabel:  corr.Label.String(),
			constants.ParamParentVersion: parent.VersionID,
			constants.ParamCorrectionID:  corr.ID,
			constants.ParamEpochs:        models.FormatFloatParam(float64(c.cfg.FineTuneEpochs)),
			constants.ParamLearningRate:  models.FormatFloatParam(c.cfg.FineTuneLearningRate),
		},
		Metrics: map[string]float64{
			constants.MetricLoss:     final.Loss,
			constants.MetricAccuracy: final.Accuracy,
		},
	})
	if err != nil {
		persistSpan.RecordError(err)
		persistSpan.End()
		return nil, c.failCorrection(ctx, span, log, corr, parent.VersionID, start, err)
	}
	persistSpan.SetAttributes(attribute.String("model.version_id", version.ID))
	persistSpan.End()

	c.publish(ctx, domainService.LifecycleEvent{
		Type:          constants.EventVersionCreated,
		VersionID:     version.ID,
		ParentVersion: parent.VersionID,
		CorrectionID:  corr.ID,
		Label:         corr.Label.String(),
		Metrics:       version.Metrics,
	})

	if _, installed := c.install(&Snapshot{
		Network:   child,
		Scaler:    parent.Scaler,
		VersionID: version.ID,
		LoadedAt:  time.Now().UTC(),
	}); installed {
		if err := c.pointer.PublishActive(ctx, version.ID); err != nil {
			log.Warn(ctx, "Failed to publish active version", logger.Fields{"version_id": version.ID, "error": err.Error()})
		}
		c.publish(ctx, domainService.LifecycleEvent{Type: constants.EventVersionActivated, VersionID: version.ID})
	} else {
		log.Warn(ctx, "A newer version became active during fine-tune", logger.Fields{
			"version_id": version.ID,
			"active":     c.VersionID(),
		})
	}

	c.metrics.RecordCorrection(resultSuccess, time.Since(start))
	span.SetAttributes(attribute.String("model.version_id", version.ID))
	log.Info(ctx, "Correction applied", logger.Fields{
		"version_id":     version.ID,
		"parent_version": parent.VersionID,
		"loss":           final.Loss,
		"accuracy":       final.Accuracy,
		"duration_ms":    time.Since(start).Milliseconds(),
	})
	return version, nil
}

func (c *Coordinator) failCorrection(
	ctx context.Context,
	span trace.Span,
	log logger.Logger,
	corr *models.Correction,
	parentID string,
	start time.Time,
	err error,
) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.metrics.RecordCorrection(resultError, time.Since(start))
	log.Error(ctx, "Correction failed", err, logger.Fields{"parent_version": parentID})
	c.publish(ctx, domainService.LifecycleEvent{
		Type:          constants.EventCorrectionFailed,
		ParentVersion: parentID,
		CorrectionID:  corr.ID,
		Label:         corr.Label.String(),
		Error:         err.Error(),
	})
	return err
}

func (c *Coordinator) publish(ctx context.Context, event domainService.LifecycleEvent) {
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn(ctx, "Failed to publish lifecycle event", logger.Fields{
			"event_type": string(event.Type),
			"version_id": event.VersionID,
			"error":      err.Error(),
		})
	}
}

//Personal.AI order the ending
