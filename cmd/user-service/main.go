package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "user-service"

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:          serviceName,
	Short:        "Account state and order eligibility service",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resetMonthlyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
