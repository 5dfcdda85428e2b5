package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/spectradex/internal/config"
	"github.com/kailas-cloud/spectradex/internal/version"
)

var (
	envName string

	rootCmd = &cobra.Command{
		Use:           "spectradex",
		Short:         "Divide, cluster and summarize mass spectrometry particle collections",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(),
		"configuration environment (loads config/<env>.yaml)")

	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd, treeCmd, divideCmd, clusterCmd, summarizeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
