// Package main is the entry point for the capiscio-iap CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capiscio/capiscio-iap/internal/log"
	"github.com/capiscio/capiscio-iap/pkg/iap"
)

// Environment variables consulted for flags left unset on the command line.
const (
	envCredentials    = "GOOGLE_APPLICATION_CREDENTIALS"
	envTargetAudience = "IAP_TARGET_AUDIENCE"
	envTokenURL       = "IAP_TOKEN_URL"
	envLogLevel       = "LOG_LEVEL"
)

var (
	credentialsFile string
	targetAudience  string
	tokenURL        string
	logLevel        string
	timeout         time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "capiscio-iap",
	Short: "Call IAP-protected resources with a service account key",
	Long: `Signs a service account assertion for a target audience, exchanges it
for an OIDC ID token and uses the token as a bearer credential.

Unset flags fall back to GOOGLE_APPLICATION_CREDENTIALS, IAP_TARGET_AUDIENCE,
IAP_TOKEN_URL and LOG_LEVEL. A .env file in the working directory is loaded first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		applyEnvDefaults(cmd)

		zl, err := log.NewLogger(log.WithLogLevel(logLevel))
		if err != nil {
			return err
		}
		logger = zl
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&credentialsFile, "credentials", "", "Path to the service account key file (env "+envCredentials+")")
	pf.StringVar(&targetAudience, "audience", "", "Client ID of the protected resource (env "+envTargetAudience+")")
	pf.StringVar(&tokenURL, "token-url", iap.DefaultTokenURL, "OAuth2 token endpoint (env "+envTokenURL+")")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error (env "+envLogLevel+")")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "Deadline for each network call")
}

// applyEnvDefaults fills flags the user did not set from the environment.
func applyEnvDefaults(cmd *cobra.Command) {
	bindings := map[string]string{
		"credentials": envCredentials,
		"audience":    envTargetAudience,
		"token-url":   envTokenURL,
		"log-level":   envLogLevel,
	}
	for flag, env := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil || f.Changed {
			continue
		}
		if v, ok := os.LookupEnv(env); ok && v != "" {
			_ = f.Value.Set(v)
		}
	}
}

// newClient builds the flow client from the resolved flags.
func newClient() *iap.Client {
	return iap.NewClient(
		iap.WithTokenURL(tokenURL),
		iap.WithLogger(logger),
		iap.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

func requireAudience() error {
	if targetAudience == "" {
		return fmt.Errorf("--audience (or %s) is required", envTargetAudience)
	}
	return nil
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
