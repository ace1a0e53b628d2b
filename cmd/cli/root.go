package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/internal/infrastructure/monitoring"
	"github.com/turtacn/riskserve/pkg/logger"
)

var configFile string

// rootCmd represents the base command when the `riskserve-admin` binary is called without any subcommands.
// rootCmd 代表在没有任何子命令的情况下调用 `riskserve-admin` 二进制文件时的基本命令。
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "riskserve-admin",
		Short: "A CLI tool for administering the maternal health risk model store.",
		Long: `riskserve-admin trains the initial model version, lists registered versions
and runs one-off predictions against the artifact store the server reads from.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml or /etc/riskserve/config.yaml)")
	cmd.AddCommand(newTrainCmd(), newVersionsCmd(), newPredictCmd())
	return cmd
}

// Execute is the main entry point for the CLI application.
// Execute 是 CLI 应用程序的主入口点。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnv reads the shared configuration and builds a logger for a command.
func loadEnv() (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

//Personal.AI order the ending
