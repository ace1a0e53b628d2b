package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/turtacn/riskserve/internal/application/dto"
	appservice "github.com/turtacn/riskserve/internal/application/service"
	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/internal/infrastructure/artifact"
)

func newPredictCmd() *cobra.Command {
	var f models.PatientFeatures
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify one observation with the latest registered version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.Validate(); err != nil {
				return err
			}
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			opened, err := artifact.Open(cmd.Context(), &cfg.Tracking, log)
			if err != nil {
				return err
			}
			defer opened.Close()

			coordinator := appservice.NewCoordinator(opened.Store, appservice.CoordinatorConfig{}, nil, nil, nil, nil, log)
			prediction, err := coordinator.Predict(cmd.Context(), f)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewPredictResponse(prediction))
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&f.Age, "age", 0, "age in years")
	flags.Float64Var(&f.SystolicBP, "systolic-bp", 0, "systolic blood pressure (mmHg)")
	flags.Float64Var(&f.DiastolicBP, "diastolic-bp", 0, "diastolic blood pressure (mmHg)")
	flags.Float64Var(&f.BS, "bs", 0, "blood sugar (mmol/L)")
	flags.Float64Var(&f.BodyTemp, "body-temp", 0, "body temperature (F)")
	flags.Float64Var(&f.HeartRate, "heart-rate", 0, "heart rate (bpm)")
	for _, name := range []string{"age", "systolic-bp", "diastolic-bp", "bs", "body-temp", "heart-rate"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

//Personal.AI order the ending
