package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vectortube/internal/admin"
	"vectortube/internal/auth"
)

var (
	adminAddr   string
	adminToken  string
	adminSecret string
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operate a running vectortube server over its admin gRPC port",
	Long: `Operate a running vectortube server over its admin gRPC port.

Authenticate with --token, or with --secret to sign a short-lived token
locally. Both fall back to VECTORTUBE_ADMIN_TOKEN and VECTORTUBE_JWT_SECRET.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&adminAddr, "addr", "localhost:8081", "admin gRPC address")
	rootCmd.PersistentFlags().StringVar(&adminToken, "token", os.Getenv("VECTORTUBE_ADMIN_TOKEN"), "bearer token")
	rootCmd.PersistentFlags().StringVar(&adminSecret, "secret", os.Getenv("VECTORTUBE_JWT_SECRET"), "JWT secret used to sign a token when --token is empty")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(enquiriesCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect dials the admin server with whatever credentials the flags give.
func connect(ctx context.Context) (*admin.Client, context.Context, context.CancelFunc, error) {
	token := adminToken
	if token == "" && adminSecret != "" {
		t, err := auth.MakeJWT("admin-cli", adminSecret, 5*time.Minute)
		if err != nil {
			return nil, nil, nil, err
		}
		token = t
	}

	client, err := admin.Dial(adminAddr, token)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return client, ctx, cancel, nil
}
