package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/turtacn/riskserve/internal/application/dto"
	"github.com/turtacn/riskserve/internal/infrastructure/artifact"
	"github.com/turtacn/riskserve/pkg/constants"
)

func newVersionsCmd() *cobra.Command {
	versionsCmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect registered model versions",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List versions oldest first with their params and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			opened, err := artifact.Open(cmd.Context(), &cfg.Tracking, log)
			if err != nil {
				return err
			}
			defer opened.Close()

			versions, err := opened.Store.ListVersions(cmd.Context())
			if err != nil {
				return err
			}
			activeID := ""
			if len(versions) > 0 {
				activeID = versions[len(versions)-1].ID
			}
			resp := dto.NewVersionListResponse(opened.Store.Experiment(), activeID, versions)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			return printVersions(cmd.OutOrStdout(), resp)
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	versionsCmd.AddCommand(listCmd)
	return versionsCmd
}

func printVersions(out io.Writer, resp *dto.VersionListResponse) error {
	if len(resp.Versions) == 0 {
		_, err := fmt.Fprintf(out, "No versions registered in %s\n", resp.Experiment)
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tPARENT\tEVENT\tLABEL\tACCURACY\tLOSS\t")
	for _, v := range resp.Versions {
		event := v.Params[constants.ParamEvent]
		if event == "" {
			event = v.Params[constants.ParamMode]
		}
		marker := ""
		if v.Active {
			marker = " *"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%.4f\t%.4f\t\n",
			v.VersionID, marker, dash(v.ParentID), dash(event), dash(v.Params[constants.ParamTriggerLabel]),
			v.Metrics[constants.MetricAccuracy], v.Metrics[constants.MetricLoss])
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

//Personal.AI order the ending
