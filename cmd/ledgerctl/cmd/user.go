package cmd

import (
	"fmt"
	"time"

	"github.com/Dan9191/ledger-service/internal/middleware"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/spf13/cobra"
)

var (
	username  string
	userEmail string
	tokenTTL  time.Duration
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage ledger owners",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		user := &models.User{Username: username, Email: userEmail}
		exitOnError(a.Repo.CreateUser(cmd.Context(), user), "failed to create user")
		fmt.Printf("Created user %s (%d)\n", user.Username, user.ID)
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for a user",
	Long: `Issue a bearer token for the API, signed with JWT_SECRET.

Example:
  ledgerctl user token --email alice@example.com --ttl 720h`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		user, err := a.Repo.FindUserByEmail(cmd.Context(), userEmail)
		exitOnError(err, "failed to find user")
		token, err := middleware.IssueToken(a.Config.JWTSecret, user.ID, tokenTTL)
		exitOnError(err, "failed to issue token")
		fmt.Println(token)
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&username, "username", "", "username (required)")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address (required)")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("email")

	userTokenCmd.Flags().StringVar(&userEmail, "email", "", "email address (required)")
	userTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	userTokenCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userTokenCmd)
}
