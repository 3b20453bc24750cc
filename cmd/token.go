package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
	"github.com/ravipandeydu/interview-pro-sub002/internal/server"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

var (
	flagTokenUser   string
	flagTokenRole   string
	flagTokenTTL    time.Duration
	flagTokenSecret string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for a participant",
	Long: `Mint an access token signed with the service's JWT secret. The secret is
read from --jwt-secret, JWT_SECRET or the server section of the config file.

Examples:
  interviewpro token --role recruiter --user alice
  interviewpro token --role candidate --ttl 2h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(config.ServerOptions{
			ConfigFile: flagConfig,
			JWTSecret:  flagTokenSecret,
		})
		if err != nil {
			return err
		}

		user := flagTokenUser
		if user == "" {
			user = uuid.NewString()
		}

		token, err := server.NewAuthenticator(cfg.JWTSecret).IssueToken(user, flagTokenRole, flagTokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&flagTokenUser, "user", "", "User id (random when empty)")
	tokenCmd.Flags().StringVar(&flagTokenRole, "role", signaling.RoleCandidate, "Role: candidate, recruiter or admin")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 12*time.Hour, "Token lifetime")
	tokenCmd.Flags().StringVar(&flagTokenSecret, "jwt-secret", "", "HMAC secret")
}
