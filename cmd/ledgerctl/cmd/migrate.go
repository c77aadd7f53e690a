package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd creates the schema and seeds the default sub account types.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()
		fmt.Printf("Schema ready (%s)\n", a.Config.DBDriver)
	},
}
