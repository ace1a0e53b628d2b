package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/domain/repository"
	"github.com/turtacn/riskserve/internal/infrastructure/artifact"
	"github.com/turtacn/riskserve/internal/infrastructure/monitoring"
	"github.com/turtacn/riskserve/internal/ml"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

type trainOptions struct {
	DataPath  string
	Clean     bool
	Synthetic int
}

func newTrainCmd() *cobra.Command {
	var opts trainOptions
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and register the initial model version",
		Long: `train fits the scaler on the whole dataset, trains a fresh network on an
80/20 split and registers the result as a new version. A running server picks it
up through the artifact directory watcher.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			opened, err := artifact.Open(ctx, &cfg.Tracking, log)
			if err != nil {
				return err
			}
			defer opened.Close()

			tracing, err := monitoring.NewTracingManager(&cfg.Tracing, log)
			if err != nil {
				return err
			}
			defer tracing.Shutdown(context.Background())

			var version *models.ModelVersion
			err = monitoring.TraceOperation(ctx, tracing, "admin.train", func(ctx context.Context) error {
				version, err = runTrain(ctx, cfg, opened.Store, opts, log)
				return err
			}, map[string]interface{}{"data": opts.DataPath, "clean": opts.Clean})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered version %s (accuracy %.4f, loss %.4f)\n",
				version.ID, version.Metrics[constants.MetricAccuracy], version.Metrics[constants.MetricLoss])
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.DataPath, "data", "", "CSV with Age,SystolicBP,DiastolicBP,BS,BodyTemp,HeartRate and RiskLevel or Risk_Num")
	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "remove every registered version and its artifacts first")
	cmd.Flags().IntVar(&opts.Synthetic, "synthetic", 0, "train on this many synthetic rows instead of --data")
	return cmd
}

func runTrain(ctx context.Context, cfg *config.Config, store *artifact.Store, opts trainOptions, log logger.Logger) (*models.ModelVersion, error) {
	var (
		ds     *ml.Dataset
		source string
		err    error
	)
	switch {
	case opts.DataPath != "":
		ds, err = ml.LoadDatasetFile(opts.DataPath)
		source = opts.DataPath
	case opts.Synthetic > 0:
		ds = ml.SyntheticDataset(opts.Synthetic, cfg.Model.Seed)
		source = "synthetic"
	default:
		err = errors.Validation("either --data or --synthetic is required", nil)
	}
	if err != nil {
		return nil, err
	}

	if opts.Clean {
		if err := store.Purge(ctx); err != nil {
			return nil, err
		}
		log.Info(ctx, "Removed existing versions", logger.Fields{"experiment": store.Experiment()})
	}

	log.Info(ctx, "Training baseline model", logger.Fields{"rows": ds.Len(), "source": source})
	result, err := ml.TrainBaseline(ctx, ds, ml.BaselineConfig{
		Hidden:       cfg.Model.HiddenLayers,
		Dropout:      cfg.Model.Dropout,
		Epochs:       cfg.Model.TrainEpochs,
		BatchSize:    cfg.Model.BatchSize,
		LearningRate: cfg.Model.LearningRate,
		TestRatio:    cfg.Model.TestRatio,
		Seed:         cfg.Model.Seed,
		Classes:      constants.NumRiskClasses,
	})
	if err != nil {
		return nil, errors.TrainingFailed(err)
	}

	hidden := make([]string, len(cfg.Model.HiddenLayers))
	for i, n := range cfg.Model.HiddenLayers {
		hidden[i] = strconv.Itoa(n)
	}
	version, err := store.Persist(ctx, result.Network, result.Scaler, repository.PersistRequest{
		Params: map[string]string{
			constants.ParamMode:         constants.ModeDemoInitializing,
			constants.ParamEpochs:       strconv.Itoa(cfg.Model.TrainEpochs),
			constants.ParamLearningRate: strconv.FormatFloat(cfg.Model.LearningRate, 'g', -1, 64),
			"hidden_layers":             strings.Join(hidden, "-"),
			"batch_size":                strconv.Itoa(cfg.Model.BatchSize),
			"train_rows":                strconv.Itoa(result.TrainRows),
			"test_rows":                 strconv.Itoa(result.TestRows),
			"data":                      source,
		},
		Metrics: map[string]float64{
			constants.MetricAccuracy: result.TestAccuracy,
			constants.MetricLoss:     result.TestLoss,
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "Baseline model registered", logger.Fields{
		"version_id": version.ID,
		"accuracy":   result.TestAccuracy,
		"loss":       result.TestLoss,
	})
	return version, nil
}

//Personal.AI order the ending
