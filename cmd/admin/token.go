package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vectortube/internal/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for the HTTP API and admin port",
	Long: `Sign a bearer token with --secret (or VECTORTUBE_JWT_SECRET).

Examples:
  admin token --secret s3cret --ttl 24h
  curl -H "Authorization: Bearer $(admin token)" -X DELETE .../api/videos/ID`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminSecret == "" {
			return errors.New("--secret is required")
		}
		token, err := auth.MakeJWT(tokenSubject, adminSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
