package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/riceadvisor/riceadvisor/internal/auth"
	"github.com/riceadvisor/riceadvisor/internal/config"
)

var tokenOpts struct {
	subject string
	role    string
	ttl     time.Duration
}

// tokenCmd mints an operator bearer token
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator bearer token",
	Long: `Mint a bearer token for the ops and admin endpoints.

The token is signed with JWT_SIGNING_KEY, read from the environment or .env.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOpts.subject, "subject", "", "Operator identity")
	tokenCmd.Flags().StringVar(&tokenOpts.role, "role", auth.RoleOperator, "Role: operator or admin")
	tokenCmd.Flags().DurationVar(&tokenOpts.ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject") //nolint:errcheck // flag is defined above
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	svc := auth.NewJWTService(auth.JWTConfig{SigningKey: cfg.JWTSigningKey})
	token, expiresAt, err := svc.GenerateToken(tokenOpts.subject, tokenOpts.role, tokenOpts.ttl)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"token":     token,
			"role":      tokenOpts.role,
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
