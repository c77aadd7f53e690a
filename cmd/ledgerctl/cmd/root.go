// Package cmd provides the ledgerctl commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Dan9191/ledger-service/internal/app"
	"github.com/Dan9191/ledger-service/internal/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFile string
	debug   bool

	log = logrus.New()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Maintain the ledger database from the command line",
	Long: `ledgerctl runs maintenance and batch jobs against the ledger database
configured for the API server.

It supports:
- Creating the schema
- Recomputing every stored account balance
- Syncing and retrying bank feed connections
- Importing CSV and camt.053 statements
- Creating users and issuing API tokens

Example:
  ledgerctl migrate
  ledgerctl recompute-balances
  ledgerctl import --owner 1 --account 3 --file statement.csv`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := os.Getenv("LOG_LEVEL")
		if debug {
			level = "debug"
		}
		log = app.NewLogger(level)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load before reading configuration (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(userCmd)
}

// openApp loads configuration and initializes every layer.
func openApp(ctx context.Context) *app.App {
	if envFile != "" {
		exitOnError(godotenv.Load(envFile), "failed to load env file")
	}
	cfg, err := config.NewConfig()
	exitOnError(err, "failed to load configuration")

	a, err := app.New(ctx, cfg, log)
	exitOnError(err, "failed to initialize")
	return a
}

// exitOnError logs err, prints it and exits.
func exitOnError(err error, msg string) {
	if err != nil {
		log.Errorf("%s: %v", msg, err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
