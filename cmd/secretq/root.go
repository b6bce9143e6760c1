package main

import (
	"github.com/spf13/cobra"

	"github.com/MrEthical07/goSecretQ/internal/appconfig"
)

var version = "dev" // set by the linker

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "secretq",
		Short:         "Secret question second factor service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./secretq.yaml)")
	root.PersistentFlags().String("backend", appconfig.BackendRedis, "credential backend: redis, sqlite, postgres or mysql")
	root.PersistentFlags().String("redis_addr", "", "redis address; empty starts an in-process miniredis")
	root.PersistentFlags().String("sqlite_dsn", "", "sqlite DSN for the sqlite backend")
	root.PersistentFlags().String("sql_dsn", "", "DSN for the postgres and mysql backends")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")

	load := func(cmd *cobra.Command) (appconfig.Config, error) {
		return appconfig.Load(cmd, cfgFile)
	}

	root.AddCommand(
		newServeCmd(load),
		newCredentialCmd(load),
		newSessionCmd(load),
		newReportCmd(load),
		newConfigCmd(load),
		newLoadtestCmd(),
	)
	return root
}

type configLoader func(cmd *cobra.Command) (appconfig.Config, error)
